// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/cache"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/config"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/recognizer"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/stats"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/terminology"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/translate"
)

var (
	configFile string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "bits",
	Short: "bits - terminology annotation for biodiversity datasets",
	Long:  "Annotates tabular data with terminology service entries, validates the result and reports run statistics.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug output")

	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(terminologiesCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the run configuration. requireDataset is set by
// commands that read the input file; service-only commands skip the dataset
// checks.
func loadConfig(requireDataset bool) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Debug = true
	}
	if requireDataset {
		err = config.ValidateConfig(cfg)
	} else {
		err = config.ValidateServiceConfig(cfg)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newObserver(cfg *config.Config) *observability.StandardObserver {
	level := observability.ObservabilityMetrics
	if cfg.Debug {
		level = observability.ObservabilityDebug
	}
	return observability.NewStandardObserver(level, os.Stderr)
}

// pipeline bundles the collaborators a run or the dashboard needs.
type pipeline struct {
	cfg      *config.Config
	observer *observability.StandardObserver
	cache    *cache.MatchCache
	client   *terminology.Client
	matcher  *terminology.Matcher
	stats    *stats.Collector
}

// buildPipeline wires the shared components from the configuration.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	observer := newObserver(cfg)
	collector := stats.NewCollector()

	matchCache := cache.New(cache.Options{
		Enabled: cfg.Cache.Enabled,
		Path:    cfg.Cache.Path,
		TTL:     cfg.CacheTTL(),
	}, observer)

	client := terminology.NewClient(terminology.ClientOptions{
		SearchURL:  cfg.Search.SearchURL,
		CatalogURL: cfg.Search.CatalogURL,
		Timeout:    cfg.SearchTimeout(),
		MaxRetries: cfg.Search.MaxRetries,
	})

	var translator terminology.Translator
	if cfg.Translation.Enabled {
		translator = translate.NewClient(translate.Options{
			BaseURL:        cfg.Translation.BaseURL,
			SourceLanguage: cfg.Translation.SourceLanguage,
			TargetLanguage: cfg.Translation.TargetLanguage,
			APIKey:         cfg.Translation.APIKey,
		})
	}

	matcher, err := terminology.NewMatcher(terminology.MatcherOptions{
		Kind:          match.Kind(cfg.Search.Kind),
		Terminologies: cfg.Search.Terminologies,
		Collections:   cfg.Search.Collections,
		Threshold:     cfg.Search.Threshold,
	}, client, matchCache, translator, collector, observer)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		cfg:      cfg,
		observer: observer,
		cache:    matchCache,
		client:   client,
		matcher:  matcher,
		stats:    collector,
	}, nil
}

// recognitionSources builds the configured phrase sources.
func recognitionSources(cfg *config.Config) []recognizer.Source {
	var sources []recognizer.Source
	if cfg.Recognition.Chunker {
		sources = append(sources, recognizer.NewChunkSource())
	}
	for _, remote := range cfg.Recognition.Remote {
		sources = append(sources, recognizer.NewRemoteSource(recognizer.RemoteOptions{
			Name:        remote.Name,
			BaseURL:     remote.BaseURL,
			Model:       remote.Model,
			System:      remote.System,
			APIKey:      remote.APIKey,
			Temperature: remote.Temperature,
			TopK:        remote.TopK,
			TopP:        remote.TopP,
			Timeout:     remoteTimeout(remote.TimeoutSecs),
		}))
	}
	return sources
}

func remoteTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// isTerminal reports whether stdout is attached to a terminal. Colors are
// disabled for piped output.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func printError(err error) {
	if isTerminal() {
		color.Red("Error: %v", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
