// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// bits annotates tabular biodiversity data with terminology service entries.
package main

import (
	"os"

	"github.com/Senckenberg-DCBiodivIT/BITS/cmd/bits/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
