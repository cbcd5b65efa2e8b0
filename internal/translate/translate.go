// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package translate provides a LibreTranslate client used as a fallback:
// phrases that score poorly in their original language are retried against
// terminology labels in their translated form.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Options configures the translation client.
type Options struct {
	BaseURL        string
	SourceLanguage string
	TargetLanguage string
	APIKey         string
	Timeout        time.Duration
}

// Client calls a LibreTranslate-compatible endpoint.
type Client struct {
	opts   Options
	client *http.Client
}

// NewClient creates a translation client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate converts text from the configured source language to the target
// language. An empty result with nil error means the service answered but
// produced nothing usable.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: c.opts.SourceLanguage,
		Target: c.opts.TargetLanguage,
		Format: "text",
		APIKey: c.opts.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("encoding translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translation service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading translation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result translateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding translation response: %w", err)
	}
	return strings.TrimSpace(result.TranslatedText), nil
}
