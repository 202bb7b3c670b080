// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/resilience-sim/internal/graphstore"
	"github.com/bonial-oss/resilience-sim/internal/output"
	"github.com/bonial-oss/resilience-sim/internal/resilience"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

func newExportCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the topology to an external store",
	}
	cmd.AddCommand(newExportNeo4jCommand(opts))
	return cmd
}

type neo4jOptions struct {
	URI        string
	Username   string
	Password   string
	Database   string
	Timeout    time.Duration
	WithScores bool
}

func newExportNeo4jCommand(opts *Options) *cobra.Command {
	nopts := &neo4jOptions{}
	cmd := &cobra.Command{
		Use:   "neo4j",
		Short: "Merge assets and connections into a Neo4j database",
		Long: `neo4j merges every asset as a (:Node) vertex and every connection as a
[:CONNECTED_TO] relationship. Connection settings default to the
NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD and NEO4J_DATABASE variables.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = opts.runE(func(cmd *cobra.Command, _ []string) error {
		return runExportNeo4j(cmd, opts, nopts)
	})

	flags := cmd.Flags()
	flags.StringVar(&nopts.URI, "uri", "", "Bolt or neo4j URI (default $NEO4J_URI or "+graphstore.DefaultURI+")")
	flags.StringVar(&nopts.Username, "username", "", "User name (default $NEO4J_USERNAME or "+graphstore.DefaultUsername+")")
	flags.StringVar(&nopts.Password, "password", "", "Password (default $NEO4J_PASSWORD)")
	flags.StringVar(&nopts.Database, "database", "", "Target database (default $NEO4J_DATABASE or the server default)")
	flags.DurationVar(&nopts.Timeout, "timeout", 30*time.Second, "Connection timeout")
	flags.BoolVar(&nopts.WithScores, "with-scores", false, "Store the computed resilience score on every node")
	return cmd
}

func runExportNeo4j(cmd *cobra.Command, opts *Options, nopts *neo4jOptions) (err error) {
	cfg := graphstore.ConfigFromEnv(os.Getenv)
	flags := cmd.Flags()
	if flags.Changed("uri") {
		cfg.URI = nopts.URI
	}
	if flags.Changed("username") {
		cfg.Username = nopts.Username
	}
	if flags.Changed("password") {
		cfg.Password = nopts.Password
	}
	if flags.Changed("database") {
		cfg.Database = nopts.Database
	}
	cfg.Timeout = nopts.Timeout
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	ds, g, err := opts.loadDataset()
	if err != nil {
		return err
	}
	var scores *types.ResilienceResult
	if nopts.WithScores {
		scores, err = resilience.Recompute(g, resilience.Inputs{WorkAreas: ds.WorkAreas, FuzzySets: ds.FuzzySets}, opts.scoring(ds))
		if err != nil {
			return fmt.Errorf("computing resilience: %w", err)
		}
	}

	exp, err := graphstore.New(cmd.Context(), cfg, opts.log)
	if err != nil {
		if errors.Is(err, types.ErrConfiguration) {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		return err
	}
	defer closeInto(&err, func() error {
		if cErr := exp.Close(cmd.Context()); cErr != nil {
			return fmt.Errorf("closing neo4j driver: %w", cErr)
		}
		return nil
	})

	summary, err := exp.Export(cmd.Context(), g.Assets(), scores)
	if err != nil {
		return err
	}
	return opts.write(cmd, summary, func(w io.Writer, _ output.TableConfig) error {
		_, err := fmt.Fprintf(w, "Exported %d nodes and %d relationships to %s\n", summary.Nodes, summary.Relationships, cfg.URI)
		return err
	})
}
