// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var terminologiesCmd = &cobra.Command{
	Use:   "terminologies",
	Short: "List the terminologies available on the configured service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			printError(err)
			return err
		}
		pipe, err := buildPipeline(cfg)
		if err != nil {
			printError(err)
			return err
		}

		names, err := pipe.client.Catalog(context.Background())
		if err != nil {
			printError(err)
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
