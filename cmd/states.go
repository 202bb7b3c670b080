// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/output"
	"github.com/bonial-oss/resilience-sim/internal/resilience"
	"github.com/bonial-oss/resilience-sim/internal/state"
)

func newStatesCommand(opts *Options) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "states",
		Short: "Classify every asset into an operational state and decay its score",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, _ []string) error {
		ds, g, err := opts.loadDataset()
		if err != nil {
			return err
		}

		var adjustments []state.Adjustment
		if initial {
			adjustments = state.Simulate(g.Assets(), nil)
		} else {
			res, err := resilience.Recompute(g, resilience.Inputs{WorkAreas: ds.WorkAreas, FuzzySets: ds.FuzzySets}, opts.scoring(ds))
			if err != nil {
				return fmt.Errorf("computing resilience: %w", err)
			}
			opts.metrics.ObserveScoring(res)
			adjustments = state.Simulate(g.Assets(), res)
		}

		return opts.write(cmd, adjustments, func(w io.Writer, cfg output.TableConfig) error {
			return output.WriteStates(w, adjustments, cfg)
		})
	})
	cmd.Flags().BoolVar(&initial, "from-initial", false, "Decay from the fixed initial score instead of the computed resilience score")
	return cmd
}
