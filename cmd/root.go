// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/config"
	"github.com/bonial-oss/resilience-sim/internal/input"
	"github.com/bonial-oss/resilience-sim/internal/metrics"
	"github.com/bonial-oss/resilience-sim/internal/output"
	"github.com/bonial-oss/resilience-sim/internal/topology"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ExitError signals a non-zero exit code with an optional message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Options holds the persistent flag values shared by every subcommand.
type Options struct {
	DataDir     string
	ConfigPath  string
	CacheDir    string
	LogLevel    string
	Format      string
	Output      string
	MetricsFile string
	SortBy      string
	Strict      bool

	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Recorder
}

// NewRootCommand creates the root cobra command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:     "resilience-sim",
		Short:   "Score the cyber resilience of an asset topology and simulate attack propagation",
		Version: Version,
		Long: `resilience-sim reads an asset inventory (Nodes_Complete.json and its
companion files) from a data directory, computes per-asset and system
resilience scores, and simulates how vulnerabilities let an attacker move
through the network.

Usage:
  resilience-sim score --data-dir ./data --format table
  resilience-sim fetch-cvss --data-dir ./data
  resilience-sim simulate --data-dir ./data --av NETWORK --min-severity 7`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.DataDir, "data-dir", ".", "Directory holding the dataset files")
	flags.StringVar(&opts.ConfigPath, "config", "", "YAML file overriding scoring and simulation defaults")
	flags.StringVar(&opts.CacheDir, "cache-dir", "", "Override cache directory")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.Format, "format", "json", "Output format: json, table")
	flags.StringVarP(&opts.Output, "output", "o", "", "Write to file instead of stdout")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	flags.StringVar(&opts.SortBy, "sort-by", "", "Sort table rows by: score, id, name (default: input order)")
	flags.BoolVar(&opts.Strict, "strict", false, "Fail on connections to unknown assets instead of dropping them")

	cmd.AddCommand(
		newScoreCommand(opts),
		newSimulateCommand(opts),
		newStatesCommand(opts),
		newCVEsCommand(opts),
		newRedundancyCommand(opts),
		newFetchCVSSCommand(opts),
		newExportCommand(opts),
	)
	return cmd
}

// setup validates the persistent flags and builds the logger, config and
// metrics recorder.
func (o *Options) setup(stderr io.Writer) error {
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return &ExitError{Code: 2, Message: fmt.Sprintf("invalid log level: %s", o.LogLevel)}
	}
	o.log = logrus.New()
	o.log.SetOutput(stderr)
	o.log.SetLevel(level)
	o.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	switch o.Format {
	case "json", "table":
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported output format: %s", o.Format)}
	}
	switch o.SortBy {
	case "", "score", "id", "name":
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported sort key: %s", o.SortBy)}
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		if errors.Is(err, types.ErrConfiguration) {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		return err
	}
	o.cfg = cfg

	if o.MetricsFile != "" {
		o.metrics = metrics.New()
	}
	return nil
}

// runE wraps a command body so metrics are flushed even when it fails.
func (o *Options) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if mErr := o.metrics.WriteTextfile(o.MetricsFile); mErr != nil && err == nil {
			err = mErr
		}
		return err
	}
}

// cacheRoot resolves the cache directory.
func (o *Options) cacheRoot() (string, error) {
	if o.CacheDir != "" {
		return o.CacheDir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "resilience-sim"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "resilience-sim"), nil
}

// loadDataset reads the data directory and builds the topology. Dropped
// connections are appended to the dataset issues.
func (o *Options) loadDataset() (*input.Dataset, *topology.Graph, error) {
	ds, err := input.Load(o.DataDir, o.log)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dataset: %w", err)
	}

	var g *topology.Graph
	if o.Strict {
		g, err = topology.Build(ds.Assets)
	} else {
		var issues []types.Issue
		g, issues, err = topology.BuildLenient(ds.Assets)
		for _, issue := range issues {
			o.log.WithField("kind", issue.KindName()).Warn(issue.Err())
		}
		ds.Issues = append(ds.Issues, issues...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("building topology: %w", err)
	}
	o.metrics.ObserveIssues(ds.Issues)
	return ds, g, nil
}

// rebuild builds a graph from modified assets, dropping dangling
// connections silently unless --strict is set.
func (o *Options) rebuild(assets []types.Asset) (*topology.Graph, error) {
	if o.Strict {
		return topology.Build(assets)
	}
	g, _, err := topology.BuildLenient(assets)
	return g, err
}

// scoring returns the configured scorer settings with the dataset's
// critical-function table applied.
func (o *Options) scoring(ds *input.Dataset) config.Scoring {
	s := o.cfg.Scoring
	s.FunctionWeights, s.FunctionWorkAreas = input.FunctionTables(s.FunctionWeights, s.FunctionWorkAreas, ds.Functions)
	return s
}

// write renders data as JSON or, with --format table, through table.
func (o *Options) write(cmd *cobra.Command, data any, table func(io.Writer, output.TableConfig) error) (err error) {
	w, closeFn, err := output.Create(o.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeInto(&err, closeFn)

	if o.Format == "table" {
		return table(w, output.TableConfig{SortBy: o.SortBy, IsTerminal: output.IsOutputToTerminal(w)})
	}
	return output.WriteJSON(w, data)
}

// closeInto runs closeFn and reports its error through err unless err
// already holds one.
func closeInto(err *error, closeFn func() error) {
	if cErr := closeFn(); cErr != nil && *err == nil {
		*err = cErr
	}
}
