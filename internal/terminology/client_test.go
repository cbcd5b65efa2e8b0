// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package terminology

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchHandler(t *testing.T, docs []Doc, capture *map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			params := make(map[string]string)
			for key := range r.URL.Query() {
				params[key] = r.URL.Query().Get(key)
			}
			*capture = params
		}
		resp := searchResponse{}
		resp.Response.NumFound = len(docs)
		resp.Response.Docs = docs
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestSearchAll(t *testing.T) {
	var params map[string]string
	docs := []Doc{{ShortForm: "ENVO_001", IRI: "http://x/ENVO_001", Label: "soil", OntologyName: "envo"}}
	srv := httptest.NewServer(searchHandler(t, docs, &params))
	defer srv.Close()

	client := NewClient(ClientOptions{SearchURL: srv.URL})
	got, err := client.SearchAll(context.Background(), "soil")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ENVO_001", got[0].Identifier())
	assert.Equal(t, "soil", params["q"])
	assert.Empty(t, params["ontology"])
}

func TestSearchOntologyParams(t *testing.T) {
	var params map[string]string
	srv := httptest.NewServer(searchHandler(t, nil, &params))
	defer srv.Close()

	client := NewClient(ClientOptions{SearchURL: srv.URL})
	got, err := client.SearchOntology(context.Background(), "soil", "envo")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "soil", params["q"])
	assert.Equal(t, "envo", params["ontology"])
}

func TestSearchCollectionParams(t *testing.T) {
	var params map[string]string
	srv := httptest.NewServer(searchHandler(t, nil, &params))
	defer srv.Close()

	client := NewClient(ClientOptions{SearchURL: srv.URL})
	_, err := client.SearchCollection(context.Background(), "soil", "nfdi4biodiversity")
	require.NoError(t, err)
	assert.Equal(t, "soil", params["q"])
	assert.Equal(t, "collection", params["schema"])
	assert.Equal(t, "nfdi4biodiversity", params["classification"])
}

func TestSearchZeroHits(t *testing.T) {
	srv := httptest.NewServer(searchHandler(t, nil, nil))
	defer srv.Close()

	client := NewClient(ClientOptions{SearchURL: srv.URL})
	docs, err := client.SearchAll(context.Background(), "qqqq")
	require.NoError(t, err)
	assert.Nil(t, docs)
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		resp := searchResponse{}
		resp.Response.NumFound = 1
		resp.Response.Docs = []Doc{{ID: "X_1", Label: "x"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{SearchURL: srv.URL, MaxRetries: 2})
	docs, err := client.SearchAll(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{SearchURL: srv.URL, MaxRetries: 3})
	_, err := client.SearchAll(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ontologies", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("size"))
		_, _ = w.Write([]byte(`{"elements":[{"ontologyId":"envo"},{"ontologyId":"chebi"},{"ontologyId":"envo"},{}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{CatalogURL: srv.URL})
	names, err := client.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"chebi", "envo"}, names)
}

func TestDocIdentifierAliasing(t *testing.T) {
	assert.Equal(t, "A", Doc{ID: "A", ShortForm: "B"}.Identifier())
	assert.Equal(t, "B", Doc{ShortForm: "B"}.Identifier())
	assert.Equal(t, "", Doc{}.Identifier())
}
