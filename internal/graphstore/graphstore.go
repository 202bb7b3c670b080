// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package graphstore exports the asset topology and its resilience scores to
// Neo4j as (:Node) vertices joined by [:CONNECTED_TO] relationships.
package graphstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvURI      = "NEO4J_URI"
	EnvUsername = "NEO4J_USERNAME"
	EnvPassword = "NEO4J_PASSWORD"
	EnvDatabase = "NEO4J_DATABASE"

	DefaultURI      = "bolt://localhost:7687"
	DefaultUsername = "neo4j"
)

const mergeNodes = `
UNWIND $nodes AS n
MERGE (a:Node {node_id: n.node_id})
SET a += n.props`

const mergeEdges = `
UNWIND $edges AS e
MATCH (a:Node {node_id: e.source}), (b:Node {node_id: e.target})
MERGE (a)-[:CONNECTED_TO]->(b)`

// Config holds connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// ConfigFromEnv fills a Config from the NEO4J_* variables. getenv is
// usually os.Getenv.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		URI:      getenv(EnvURI),
		Username: getenv(EnvUsername),
		Password: getenv(EnvPassword),
		Database: getenv(EnvDatabase),
	}
	if cfg.URI == "" {
		cfg.URI = DefaultURI
	}
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	return cfg
}

// Validate reports missing settings.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: neo4j URI is empty", types.ErrConfiguration)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: neo4j password is empty (set %s)", types.ErrConfiguration, EnvPassword)
	}
	return nil
}

// Summary counts what an export wrote.
type Summary struct {
	Nodes         int `json:"nodes"`
	Relationships int `json:"relationships"`
}

// Exporter writes snapshots to one Neo4j database.
type Exporter struct {
	driver   neo4j.DriverWithContext
	database string
	log      logrus.FieldLogger
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.Timeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.Timeout
				c.SocketConnectTimeout = cfg.Timeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}
	return &Exporter{driver: driver, database: cfg.Database, log: log.WithField("uri", cfg.URI)}, nil
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// Export merges every asset and connection inside one write transaction.
// scores may be nil.
func (e *Exporter) Export(ctx context.Context, assets []types.Asset, scores *types.ResilienceResult) (Summary, error) {
	nodes, err := NodeParams(assets, scores)
	if err != nil {
		return Summary{}, err
	}
	edges := EdgeParams(assets)

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.database,
	})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, mergeNodes, map[string]any{"nodes": nodes}); err != nil {
			return nil, fmt.Errorf("merging nodes: %w", err)
		}
		if _, err := tx.Run(ctx, mergeEdges, map[string]any{"edges": edges}); err != nil {
			return nil, fmt.Errorf("merging relationships: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("exporting topology: %w", err)
	}

	s := Summary{Nodes: len(nodes), Relationships: len(edges)}
	e.log.WithFields(logrus.Fields{"nodes": s.Nodes, "relationships": s.Relationships}).Info("topology exported")
	return s, nil
}

// NodeParams builds the $nodes parameter: one map per asset holding its
// identifier and the properties to set. The severity map is stored as a
// JSON string since Neo4j properties cannot hold maps.
func NodeParams(assets []types.Asset, scores *types.ResilienceResult) ([]map[string]any, error) {
	var scoreByID map[string]float64
	if scores != nil {
		scoreByID = make(map[string]float64, len(scores.NodeScores))
		for _, s := range scores.NodeScores {
			scoreByID[s.NodeID] = s.ResilienceScore
		}
	}

	out := make([]map[string]any, 0, len(assets))
	for i := range assets {
		a := &assets[i]
		if a.ID == "" {
			return nil, errors.New("asset without node_id")
		}
		cveScores := a.CVEScores
		if cveScores == nil {
			cveScores = map[string]float64{}
		}
		cveJSON, err := json.Marshal(cveScores)
		if err != nil {
			return nil, fmt.Errorf("encoding CVE_NVD of %s: %w", a.ID, err)
		}
		props := map[string]any{
			"node_name":            a.Name,
			"node_type":            a.Type,
			"critical_functions":   nonNil(a.CriticalFunctions),
			"connected_to":         nonNil(a.ConnectedTo),
			"critical_data_stored": a.CriticalDataStored,
			"redundancy":           a.Redundancy,
			"switch_dependency":    a.SwitchDependency,
			"resilience_penalty":   a.Penalty(),
			"CVE":                  nonNil(a.CVEs),
			"CVE_NVD":              string(cveJSON),
		}
		if a.Rack != "" {
			props["rack_name"] = a.Rack
		}
		if a.BackupRole != "" {
			props["backup_role"] = a.BackupRole
		}
		if len(a.SoftwareIDs) > 0 {
			props["software_ids"] = a.SoftwareIDs
		}
		if score, ok := scoreByID[a.ID]; ok {
			props["resilience_score"] = score
		}
		out = append(out, map[string]any{"node_id": a.ID, "props": props})
	}
	return out, nil
}

// EdgeParams builds the $edges parameter from every listed connection,
// deduplicated and without self-connections.
func EdgeParams(assets []types.Asset) []map[string]any {
	seen := make(map[types.Edge]struct{})
	out := []map[string]any{}
	for i := range assets {
		for _, target := range assets[i].ConnectedTo {
			e := types.Edge{Source: assets[i].ID, Target: target}
			if e.Source == e.Target {
				continue
			}
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, map[string]any{"source": e.Source, "target": e.Target})
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
