// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/output"
	"github.com/bonial-oss/resilience-sim/internal/resilience"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

type scoreOptions struct {
	Patch       string
	ShowMetrics bool
	FailBelow   float64
}

// patchReport is the JSON shape of a --patch run.
type patchReport struct {
	CVEID        string                  `json:"cve_id"`
	PatchedNodes []string                `json:"patched_nodes"`
	Before       *types.ResilienceResult `json:"before"`
	After        *types.ResilienceResult `json:"after"`
	Delta        resilience.Delta        `json:"delta"`
}

func newScoreCommand(opts *Options) *cobra.Command {
	sopts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute per-asset and system resilience scores",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, _ []string) error {
		return runScore(cmd, opts, sopts)
	})

	flags := cmd.Flags()
	flags.StringVar(&sopts.Patch, "patch", "", "Recompute as if this CVE were patched everywhere and report the change")
	flags.BoolVar(&sopts.ShowMetrics, "metrics", false, "Include the per-factor breakdown")
	flags.Float64Var(&sopts.FailBelow, "fail-below", 0, "Exit code 1 if the system score is below this value")
	return cmd
}

func runScore(cmd *cobra.Command, opts *Options, sopts *scoreOptions) error {
	ds, g, err := opts.loadDataset()
	if err != nil {
		return err
	}
	scoring := opts.scoring(ds)
	in := resilience.Inputs{WorkAreas: ds.WorkAreas, FuzzySets: ds.FuzzySets}

	res, err := resilience.Recompute(g, in, scoring)
	if err != nil {
		return fmt.Errorf("computing resilience: %w", err)
	}
	opts.metrics.ObserveScoring(res)
	res.Issues = append(append([]types.Issue{}, ds.Issues...), res.Issues...)
	opts.log.WithFields(logrus.Fields{
		"assets":       g.Len(),
		"system_score": res.SystemScore,
		"issues":       len(res.Issues),
	}).Info("resilience computed")

	final := res
	if sopts.Patch != "" {
		patched, nodes := resilience.PatchCVE(g.Assets(), sopts.Patch)
		if len(nodes) == 0 {
			opts.log.WithField("cve", sopts.Patch).Warn("no asset carries this vulnerability")
		}
		pg, err := opts.rebuild(patched)
		if err != nil {
			return fmt.Errorf("rebuilding topology: %w", err)
		}
		after, err := resilience.Recompute(pg, in, scoring)
		if err != nil {
			return fmt.Errorf("computing patched resilience: %w", err)
		}
		opts.metrics.ObserveScoring(after)
		if !sopts.ShowMetrics {
			res.Metrics = nil
			after.Metrics = nil
		}
		report := patchReport{
			CVEID:        sopts.Patch,
			PatchedNodes: nonNilStrings(nodes),
			Before:       res,
			After:        after,
			Delta:        resilience.Compare(res, after),
		}
		err = opts.write(cmd, report, func(w io.Writer, cfg output.TableConfig) error {
			if err := output.WriteScores(w, after, cfg); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return output.WriteDelta(w, "Patch "+sopts.Patch, report.Delta, cfg)
		})
		if err != nil {
			return err
		}
		final = after
	} else {
		if !sopts.ShowMetrics {
			res.Metrics = nil
		}
		err = opts.write(cmd, res, func(w io.Writer, cfg output.TableConfig) error {
			if err := output.WriteScores(w, res, cfg); err != nil {
				return err
			}
			if sopts.ShowMetrics {
				fmt.Fprintln(w)
				return output.WriteMetrics(w, res, cfg)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("fail-below") && final.SystemScore < sopts.FailBelow {
		return &ExitError{
			Code:    1,
			Message: fmt.Sprintf("system resilience score %.5f is below %.5f", final.SystemScore, sopts.FailBelow),
		}
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
