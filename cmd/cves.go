// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/output"
	"github.com/bonial-oss/resilience-sim/internal/resilience"
)

func newCVEsCommand(opts *Options) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "cves",
		Short: "Rank vulnerabilities by how many assets they affect times their severity",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, _ []string) error {
		_, g, err := opts.loadDataset()
		if err != nil {
			return err
		}
		impacts := resilience.CVEImpacts(g.Assets())
		if top > 0 && len(impacts) > top {
			impacts = impacts[:top]
		}
		return opts.write(cmd, impacts, func(w io.Writer, cfg output.TableConfig) error {
			return output.WriteCVEImpacts(w, impacts, cfg)
		})
	})
	cmd.Flags().IntVar(&top, "top", 0, "Only list the N most impactful vulnerabilities (0 = all)")
	return cmd
}
