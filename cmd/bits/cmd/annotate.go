// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/dataset"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/engine"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/recognizer"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/web"
)

var (
	inputOverride  string
	outputOverride string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Run the annotation pipeline over the configured dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			printError(err)
			return err
		}
		if inputOverride != "" {
			cfg.Data.InputFile = inputOverride
		}
		if outputOverride != "" {
			cfg.Data.OutputFile = outputOverride
		}

		pipe, err := buildPipeline(cfg)
		if err != nil {
			printError(err)
			return err
		}

		provider := &dataset.CSVProvider{
			Path:    cfg.Data.InputFile,
			MaxRows: cfg.Data.MaxRows,
		}
		collector := recognizer.NewCollector(
			recognitionSources(cfg),
			cfg.Annotation.IgnoreCellValues,
			pipe.stats,
			pipe.observer,
		)

		coordinator := engine.New(cfg, provider, collector, pipe.matcher, pipe.cache, pipe.stats, pipe.observer)
		result, err := coordinator.Run(context.Background())
		if err != nil {
			printError(err)
			return err
		}

		printSummary(result)

		// Keep the dashboard up after the run when configured, so the
		// statistics and interactive annotation stay inspectable.
		if cfg.Web.Enabled {
			server := web.NewServer(cfg.Web.Port, pipe.matcher, pipe.client, pipe.stats, pipe.observer)
			if err := server.Start(); err != nil {
				printError(err)
				return err
			}
		}
		return nil
	},
}

func init() {
	annotateCmd.Flags().StringVarP(&inputOverride, "input", "i", "", "input CSV file (overrides config)")
	annotateCmd.Flags().StringVarP(&outputOverride, "output", "o", "", "output CSV file (overrides config)")
}

func printSummary(result *engine.RunResult) {
	useColor := isTerminal()
	header := color.New(color.Bold)
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	if !useColor {
		color.NoColor = true
	}

	header.Println("Annotation run complete")
	fmt.Printf("  rows:              %d\n", len(result.Annotated.Rows))
	fmt.Printf("  phrases:           %d\n", result.Phrases)
	fmt.Printf("  annotated phrases: %d\n", result.AnnotatedPhrases)
	fmt.Printf("  duration:          %s\n", result.Duration.Round(10*time.Millisecond))

	if result.Validation == nil {
		fmt.Println("  validation:        skipped")
		return
	}
	if result.Validation.OK() {
		good.Println("  validation:        reversible")
		return
	}
	bad.Printf("  validation:        %d finding(s)\n", len(result.Validation.Findings))
	if result.Validation.RowCountMismatch {
		bad.Println("  validation:        row count mismatch")
	}
}
