// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the interactive annotation dashboard: paste a cell,
// see the annotated form, browse the available terminologies and inspect
// run statistics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/annotate"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/parallel"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/recognizer"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/stats"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/terminology"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/version"
)

// Server hosts the annotation dashboard.
type Server struct {
	port     int
	matcher  parallel.PhraseMatcher
	client   *terminology.Client
	stats    *stats.Collector
	observer *observability.StandardObserver
	chunker  *recognizer.ChunkSource
	server   *http.Server
}

// NewServer creates the dashboard server. client may be nil, which disables
// the terminology catalog endpoint.
func NewServer(port int, matcher parallel.PhraseMatcher, client *terminology.Client, collector *stats.Collector, observer *observability.StandardObserver) *Server {
	return &Server{
		port:     port,
		matcher:  matcher,
		client:   client,
		stats:    collector,
		observer: observer,
		chunker:  recognizer.NewChunkSource(),
	}
}

// Start binds the server, falling back to the next ports when the requested
// one is taken. It blocks until the server stops.
func (s *Server) Start() error {
	var lastError error
	for i := 0; i < 10; i++ {
		currentPort := s.port + i

		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", currentPort))
		if err != nil {
			lastError = err
			continue
		}

		s.server = &http.Server{
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		fmt.Printf("BITS dashboard started on http://localhost:%d\n", currentPort)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			lastError = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no available port in range %d-%d: %w", s.port, s.port+9, lastError)
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHome)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/annotate", s.handleAnnotate)
	mux.HandleFunc("/api/terminologies", s.handleTerminologies)
	mux.HandleFunc("/api/statistics", s.handleStatistics)
	return mux
}

func (s *Server) serveHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, dashboardTemplate)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Short(),
	})
}

// annotateRequest is the interactive annotation payload.
type annotateRequest struct {
	Cell string `json:"cell"`
}

// annotateResponse carries the annotated cell and the phrase results that
// produced it.
type annotateResponse struct {
	Annotated string    `json:"annotated"`
	Results   match.Map `json:"results"`
	Error     string    `json:"error,omitempty"`
}

// handleAnnotate annotates a single pasted cell. Phrases are extracted with
// the local chunker and resolved through the configured matcher.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, annotateResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Cell) == "" {
		writeJSON(w, http.StatusBadRequest, annotateResponse{Error: "cell must not be empty"})
		return
	}

	var finishTiming func(bool, map[string]interface{})
	if s.observer != nil {
		finishTiming = s.observer.StartTiming("web", "annotate", "")
	}

	raw, _ := s.chunker.Recognize(r.Context(), req.Cell)
	seen := make(map[string]struct{}, len(raw))
	phrases := make([]string, 0, len(raw))
	for _, phrase := range raw {
		cleaned := recognizer.CleanPhrase(phrase)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		phrases = append(phrases, cleaned)
	}

	results := make(match.Map, len(phrases))
	for _, phrase := range phrases {
		matches, err := s.matcher.MatchPhrase(r.Context(), phrase)
		if err != nil {
			if s.observer != nil {
				s.observer.LogError("web", "match_phrase", phrase, err)
			}
			continue
		}
		results.Merge(phrase, matches)
	}

	annotated, err := annotate.New(results, s.observer).AnnotateCell(req.Cell)
	if err != nil {
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		writeJSON(w, http.StatusInternalServerError, annotateResponse{Error: err.Error()})
		return
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{"phrase_count": len(phrases)})
	}
	writeJSON(w, http.StatusOK, annotateResponse{Annotated: annotated, Results: results})
}

// handleTerminologies lists the terminologies available on the service.
func (s *Server) handleTerminologies(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		http.Error(w, "terminology catalog not configured", http.StatusServiceUnavailable)
		return
	}
	names, err := s.client.Catalog(r.Context())
	if err != nil {
		if s.observer != nil {
			s.observer.LogError("web", "catalog", "", err)
		}
		http.Error(w, "terminology service unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"terminologies": names})
}

// handleStatistics returns the current run statistics snapshot.
func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		http.Error(w, "statistics not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
