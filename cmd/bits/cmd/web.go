// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/web"
)

var webPort int

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the interactive annotation dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			printError(err)
			return err
		}
		if webPort > 0 {
			cfg.Web.Port = webPort
		}

		pipe, err := buildPipeline(cfg)
		if err != nil {
			printError(err)
			return err
		}

		server := web.NewServer(cfg.Web.Port, pipe.matcher, pipe.client, pipe.stats, pipe.observer)
		if err := server.Start(); err != nil {
			printError(err)
			return err
		}
		return nil
	},
}

func init() {
	webCmd.Flags().IntVarP(&webPort, "port", "p", 0, "dashboard port (overrides config)")
}
