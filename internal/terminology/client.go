// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package terminology talks to a TIB-compatible terminology service and
// matches phrases against its entries using edit-distance similarity.
package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultUserAgent   = "bits/0.1"
	defaultCatalogSize = 1000
)

// Doc is one search hit from the terminology service.
type Doc struct {
	ID           string `json:"id"`
	ShortForm    string `json:"short_form"`
	IRI          string `json:"iri"`
	Label        string `json:"label"`
	OntologyName string `json:"ontology_name"`
}

// Identifier returns the hit's id, falling back to short_form. Different
// deployments populate one or the other.
func (d Doc) Identifier() string {
	if d.ID != "" {
		return d.ID
	}
	return d.ShortForm
}

// ClientOptions configures the terminology service client.
type ClientOptions struct {
	// SearchURL is the search endpoint, e.g. https://api.terminology.tib.eu/api/search.
	SearchURL string
	// CatalogURL is the v2 base used for the ontology catalog,
	// e.g. https://api.terminology.tib.eu/api/v2.
	CatalogURL string
	UserAgent  string
	Timeout    time.Duration
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int
}

// Client performs search and catalog requests.
type Client struct {
	opts   ClientOptions
	client *http.Client
}

// NewClient creates a terminology service client.
func NewClient(opts ClientOptions) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

type searchResponse struct {
	Response struct {
		NumFound int   `json:"numFound"`
		Docs     []Doc `json:"docs"`
	} `json:"response"`
}

// SearchAll searches the query across every terminology.
func (c *Client) SearchAll(ctx context.Context, query string) ([]Doc, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.search(ctx, params)
}

// SearchOntology searches the query within one named terminology.
func (c *Client) SearchOntology(ctx context.Context, query, ontology string) ([]Doc, error) {
	params := url.Values{}
	params.Set("ontology", ontology)
	params.Set("q", query)
	return c.search(ctx, params)
}

// SearchCollection searches the query within a terminology collection.
func (c *Client) SearchCollection(ctx context.Context, query, collection string) ([]Doc, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("schema", "collection")
	params.Set("classification", collection)
	return c.search(ctx, params)
}

// search performs the GET with bounded retries for transient failures.
// A response with numFound of zero yields an empty slice and no error.
func (c *Client) search(ctx context.Context, params url.Values) ([]Doc, error) {
	body, err := c.get(ctx, c.opts.SearchURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if result.Response.NumFound == 0 {
		return nil, nil
	}
	return result.Response.Docs, nil
}

type catalogResponse struct {
	Elements []struct {
		OntologyID string `json:"ontologyId"`
	} `json:"elements"`
}

// Catalog lists the terminologies available on the service, sorted and
// deduplicated.
func (c *Client) Catalog(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/ontologies?size=%d", c.opts.CatalogURL, defaultCatalogSize))
	if err != nil {
		return nil, err
	}

	var result catalogResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}

	seen := make(map[string]struct{}, len(result.Elements))
	names := make([]string, 0, len(result.Elements))
	for _, element := range result.Elements {
		if element.OntologyID == "" {
			continue
		}
		if _, dup := seen[element.OntologyID]; dup {
			continue
		}
		seen[element.OntologyID] = struct{}{}
		names = append(names, element.OntologyID)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	attempts := c.opts.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryable, err := c.doGet(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// doGet runs one request. The second return value reports whether the
// failure is worth retrying.
func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("querying %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%s returned status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%s returned status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, false, nil
}
