// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/constraint"
	"github.com/bonial-oss/resilience-sim/internal/datasource/kev"
	"github.com/bonial-oss/resilience-sim/internal/datasource/nvd"
	"github.com/bonial-oss/resilience-sim/internal/input"
	"github.com/bonial-oss/resilience-sim/internal/output"
	"github.com/bonial-oss/resilience-sim/internal/simulate"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

type simulateOptions struct {
	AttackVectors    []string
	Privileges       []string
	UserInteractions []string
	MinSeverity      float64
	KEVOnly          bool
	NoKEV            bool
	SkipDBUpdate     bool
	Workers          int
	MetadataPath     string
	Unrestricted     bool
}

func newSimulateCommand(opts *Options) *cobra.Command {
	sopts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate attack propagation from every CVSS-qualified entry point",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, _ []string) error {
		return runSimulate(cmd, opts, sopts)
	})

	flags := cmd.Flags()
	flags.StringSliceVar(&sopts.AttackVectors, "av", nil, "Allowed attack vectors: NETWORK, ADJACENT_NETWORK, LOCAL (default: any)")
	flags.StringSliceVar(&sopts.Privileges, "pr", nil, "Allowed privileges required: NONE, LOW, NA (default: any)")
	flags.StringSliceVar(&sopts.UserInteractions, "ui", nil, "Allowed user interaction: NONE, NA (default: any)")
	flags.Float64Var(&sopts.MinSeverity, "min-severity", 0, "Minimum CVSS base score for entry points and traversed assets (default from config)")
	flags.BoolVar(&sopts.KEVOnly, "kev-only", false, "Only start from vulnerabilities present in KEV")
	flags.BoolVar(&sopts.NoKEV, "no-kev", false, "Do not flag known-exploited vulnerabilities")
	flags.BoolVar(&sopts.SkipDBUpdate, "skip-db-update", false, "Use cached KEV data without update check")
	flags.IntVar(&sopts.Workers, "workers", 0, "Parallel traversals (default from config, 0 = GOMAXPROCS)")
	flags.StringVar(&sopts.MetadataPath, "metadata", "", "CVSS metadata catalog (default: data dir, then cache)")
	flags.BoolVar(&sopts.Unrestricted, "unrestricted", false, "Give the attacker access to every asset regardless of role")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts *Options, sopts *simulateOptions) error {
	if sopts.KEVOnly && sopts.NoKEV {
		return &ExitError{Code: 2, Message: "--kev-only cannot be combined with --no-kev"}
	}

	ds, g, err := opts.loadDataset()
	if err != nil {
		return err
	}
	cacheDir, err := opts.cacheRoot()
	if err != nil {
		return err
	}

	catalog, err := input.LoadMetadata(metadataPath(sopts.MetadataPath, opts.DataDir, cacheDir))
	if err != nil {
		return err
	}

	simOpts := simulate.Options{
		MinSeverity: opts.cfg.Simulation.MinSeverity,
		Workers:     opts.cfg.Simulation.Workers,
		KEVOnly:     sopts.KEVOnly,
		Logger:      opts.log,
		Metrics:     opts.metrics,
	}
	if cmd.Flags().Changed("min-severity") {
		simOpts.MinSeverity = sopts.MinSeverity
	}
	if cmd.Flags().Changed("workers") {
		simOpts.Workers = sopts.Workers
	}
	for _, v := range sopts.AttackVectors {
		simOpts.AttackVectors = append(simOpts.AttackVectors, types.ParseAttackVector(v))
	}
	for _, v := range sopts.Privileges {
		simOpts.Privileges = append(simOpts.Privileges, types.ParsePrivilegesRequired(v))
	}
	for _, v := range sopts.UserInteractions {
		simOpts.UserInteractions = append(simOpts.UserInteractions, types.ParseUserInteraction(v))
	}
	if sopts.Unrestricted {
		simOpts.Roles = map[string]constraint.Role{}
	}

	if !sopts.NoKEV {
		src := kev.NewSource(filepath.Join(cacheDir, "kev"), kev.Options{Logger: opts.log})
		if err := src.Load(cmd.Context(), sopts.SkipDBUpdate); err != nil {
			if sopts.KEVOnly {
				return fmt.Errorf("loading KEV data: %w", err)
			}
			opts.log.WithError(err).Warn("continuing without known-exploited flags")
		} else {
			opts.log.WithFields(logrus.Fields{
				"catalog_version": src.Version(),
				"entries":         src.Len(),
			}).Info("KEV catalog loaded")
			simOpts.KnownExploited = src.Listed
		}
	}

	res, err := simulate.Run(cmd.Context(), g, catalog, simOpts)
	if err != nil {
		return err
	}
	res.Issues = append(append([]types.Issue{}, ds.Issues...), res.Issues...)

	return opts.write(cmd, res, func(w io.Writer, cfg output.TableConfig) error {
		return output.WriteSimulation(w, res, cfg)
	})
}

// metadataPath picks the CVSS catalog: an explicit path, the data
// directory's copy, then the fetch-cvss cache.
func metadataPath(explicit, dataDir, cacheDir string) string {
	if explicit != "" {
		return explicit
	}
	local := filepath.Join(dataDir, input.MetadataFile)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(cacheDir, "nvd", nvd.CacheFilename)
}
