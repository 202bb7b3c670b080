// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/constraint"
	"github.com/bonial-oss/resilience-sim/internal/output"
)

type redundancyResult struct {
	Candidate  string `json:"candidate"`
	Reference  string `json:"reference"`
	Equivalent bool   `json:"equivalent"`
}

func newRedundancyCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redundancy CANDIDATE REFERENCE",
		Short: "Check whether one asset can stand in for another without losing resilience",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, args []string) error {
		_, g, err := opts.loadDataset()
		if err != nil {
			return err
		}
		candidate, ok := g.Lookup(args[0])
		if !ok {
			return &ExitError{Code: 2, Message: fmt.Sprintf("unknown asset: %s", args[0])}
		}
		reference, ok := g.Lookup(args[1])
		if !ok {
			return &ExitError{Code: 2, Message: fmt.Sprintf("unknown asset: %s", args[1])}
		}

		res := redundancyResult{
			Candidate:  candidate.ID,
			Reference:  reference.ID,
			Equivalent: constraint.RedundantEquivalent(candidate, reference),
		}
		return opts.write(cmd, res, func(w io.Writer, _ output.TableConfig) error {
			verdict := "is not"
			if res.Equivalent {
				verdict = "is"
			}
			_, err := fmt.Fprintf(w, "%s (%s) %s a redundant equivalent of %s (%s)\n",
				candidate.ID, candidate.Name, verdict, reference.ID, reference.Name)
			return err
		})
	})
	return cmd
}
