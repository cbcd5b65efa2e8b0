// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// RemoteOptions configures a language-model recognition source.
type RemoteOptions struct {
	Name        string
	BaseURL     string
	Model       string
	System      string
	APIKey      string
	Temperature float64
	TopK        int
	TopP        float64
	Timeout     time.Duration
}

// RemoteSource extracts phrases by prompting a generation endpoint with the
// cell text. The model is instructed (via the system prompt) to answer with a
// bracketed list, which is then parsed out of the response.
type RemoteSource struct {
	opts   RemoteOptions
	client *http.Client
}

// NewRemoteSource creates a remote recognition source.
func NewRemoteSource(opts RemoteOptions) *RemoteSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &RemoteSource{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Name implements Source.
func (s *RemoteSource) Name() string {
	if s.opts.Name != "" {
		return s.opts.Name
	}
	return "remote"
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	Stream      bool    `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Recognize implements Source. The cell is sent as the prompt; the response
// must contain at least one bracketed phrase list.
func (s *RemoteSource) Recognize(ctx context.Context, cell string) ([]string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:       s.opts.Model,
		Prompt:      cell,
		System:      s.opts.System,
		Temperature: s.opts.Temperature,
		TopK:        s.opts.TopK,
		TopP:        s.opts.TopP,
		Stream:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", s.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", s.Name(), resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", s.Name(), err)
	}

	text := stripThinkTags(result.Response)
	phrases := ExtractBracketList(text)
	if len(phrases) == 0 {
		return nil, fmt.Errorf("no phrase list in %s response: %s", s.Name(), strings.TrimSpace(text))
	}
	return phrases, nil
}

var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>`)

// stripThinkTags removes a leading reasoning block some models prepend to
// their answer.
func stripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagPattern.ReplaceAllString(text, ""))
}

var bracketListPattern = regexp.MustCompile(`\[(.*?)\]`)

// ExtractBracketList parses every [item1, item2, ...] list in the text and
// returns the cleaned, deduplicated items.
func ExtractBracketList(text string) []string {
	seen := make(map[string]struct{})
	var items []string
	for _, group := range bracketListPattern.FindAllStringSubmatch(text, -1) {
		for _, item := range strings.Split(group[1], ",") {
			item = strings.Trim(strings.TrimSpace(item), `'"`)
			if item == "" {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}
