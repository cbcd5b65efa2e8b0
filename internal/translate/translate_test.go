// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	var gotReq translateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: " water "})
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL:        srv.URL,
		SourceLanguage: "de",
		TargetLanguage: "en",
	})

	got, err := client.Translate(context.Background(), "wasser")
	require.NoError(t, err)
	assert.Equal(t, "water", got)

	assert.Equal(t, "wasser", gotReq.Q)
	assert.Equal(t, "de", gotReq.Source)
	assert.Equal(t, "en", gotReq.Target)
	assert.Equal(t, "text", gotReq.Format)
}

func TestTranslateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.Translate(context.Background(), "wasser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestTranslateBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.Translate(context.Background(), "wasser")
	assert.Error(t, err)
}
