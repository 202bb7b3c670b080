// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package simulate runs breadth-first attack propagation from every
// CVSS-qualified entry point over the directed topology.
package simulate

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bonial-oss/resilience-sim/internal/constraint"
	"github.com/bonial-oss/resilience-sim/internal/metrics"
	"github.com/bonial-oss/resilience-sim/internal/topology"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Status explains how a run ended.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusNoMetadata    Status = "no-metadata"
	StatusNoEntryPoints Status = "no-entry-points"
)

// Options filters entry points and tunes the run. Empty allow-lists accept
// every class.
type Options struct {
	AttackVectors    []types.AttackVector
	Privileges       []types.PrivilegesRequired
	UserInteractions []types.UserInteraction
	// MinSeverity applies to the entry vulnerability's base score and to the
	// worst severity of both endpoints of every traversed edge.
	MinSeverity float64
	// KnownExploited flags entry vulnerabilities from an exploitation
	// catalog. KEVOnly drops every entry point it does not flag.
	KnownExploited func(cveID string) bool
	KEVOnly        bool
	// Roles overrides the category-derived privilege roles. A non-nil empty
	// map leaves every asset unrestricted.
	Roles   map[string]constraint.Role
	Workers int
	Logger  logrus.FieldLogger
	Metrics *metrics.Recorder
}

// EntryPoint is a qualifying (asset, vulnerability) pair.
type EntryPoint struct {
	AssetID  string
	CVEID    string
	Metadata types.CVSSMetadata
}

// EntryResult is the outcome of one traversal.
type EntryResult struct {
	EntryNode      string   `json:"entry_node"`
	EntryName      string   `json:"entry_name"`
	Label          string   `json:"label"`
	CVEID          string   `json:"cve_id"`
	BaseScore      float64  `json:"base_score"`
	KnownExploited bool     `json:"known_exploited"`
	ReachableIDs   []string `json:"reachable_ids"`
	// Reachable holds one summary line per reachable asset.
	Reachable []string     `json:"reachable"`
	Edges     []types.Edge `json:"-"`
}

// Result is the outcome of one simulation run.
type Result struct {
	RunID   string        `json:"run_id"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Entries []EntryResult `json:"entries"`
	// Edges is the union attack graph, sorted.
	Edges  []types.Edge  `json:"edges"`
	Issues []types.Issue `json:"issues,omitempty"`
}

// Run enumerates entry points and traverses from each of them in parallel.
// A nil catalog yields an empty result with StatusNoMetadata.
func Run(ctx context.Context, g *topology.Graph, catalog types.MetadataCatalog, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.KEVOnly && opts.KnownExploited == nil {
		return nil, fmt.Errorf("%w: known-exploited filter requested without a catalog", types.ErrConfiguration)
	}

	res := &Result{RunID: uuid.NewString(), Entries: []EntryResult{}, Edges: []types.Edge{}}
	log = log.WithField("run_id", res.RunID)

	if catalog == nil {
		res.Status = StatusNoMetadata
		res.Message = "CVSS metadata cache is missing; no entry points qualify"
		log.Warn(res.Message)
		return res, nil
	}

	entries, issues := EntryPoints(g, catalog, opts)
	res.Issues = issues
	opts.Metrics.ObserveIssues(issues)
	if len(entries) == 0 {
		res.Status = StatusNoEntryPoints
		res.Message = "No CVEs passed the filters."
		log.Info(res.Message)
		return res, nil
	}

	roles := opts.Roles
	if roles == nil {
		roles = constraint.Privileges(g.Assets())
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]EntryResult, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, ep := range entries {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = traverse(g, ep, roles, opts)
			opts.Metrics.ObserveTraversal(len(results[i].ReachableIDs))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Entry points that reach nothing go last; otherwise keep entry order.
	sort.SliceStable(results, func(i, j int) bool {
		return len(results[i].ReachableIDs) > 0 && len(results[j].ReachableIDs) == 0
	})
	res.Entries = results
	res.Edges = unionEdges(results)
	res.Status = StatusCompleted
	log.WithFields(logrus.Fields{
		"entry_points": len(results),
		"edges":        len(res.Edges),
	}).Info("attack simulation completed")
	return res, nil
}

// EntryPoints lists every qualifying pair in asset then vulnerability order.
// Vulnerabilities without usable metadata are reported as issues.
func EntryPoints(g *topology.Graph, catalog types.MetadataCatalog, opts Options) ([]EntryPoint, []types.Issue) {
	var (
		entries []EntryPoint
		issues  []types.Issue
	)
	for i := range g.Len() {
		a := g.Asset(i)
		for _, cve := range a.CVEs {
			meta := catalog.Lookup(cve)
			if meta == nil {
				issues = append(issues, types.Issue{
					Kind:    types.ErrMissingMetadata,
					AssetID: a.ID,
					Detail:  cve + " has no usable CVSS metadata",
				})
				continue
			}
			if !constraint.ValidEntryPoint(a, cve, meta) {
				continue
			}
			if !allowed(opts.AttackVectors, meta.AttackVector) ||
				!allowed(opts.Privileges, meta.PrivilegesRequired) ||
				!allowed(opts.UserInteractions, meta.UserInteraction) {
				continue
			}
			if meta.BaseScore < opts.MinSeverity {
				continue
			}
			if opts.KEVOnly && !opts.KnownExploited(cve) {
				continue
			}
			entries = append(entries, EntryPoint{AssetID: a.ID, CVEID: cve, Metadata: *meta})
		}
	}
	return entries, issues
}

func allowed[T comparable](list []T, v T) bool {
	if len(list) == 0 {
		return true
	}
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// traverse runs one breadth-first search. Vertices are marked on dequeue,
// so every admitted edge is recorded even when its target was already seen.
func traverse(g *topology.Graph, ep EntryPoint, roles map[string]constraint.Role, opts Options) EntryResult {
	start, _ := g.Index(ep.AssetID)
	entry := g.Asset(start)
	out := EntryResult{
		EntryNode:    entry.ID,
		EntryName:    entry.Name,
		Label:        fmt.Sprintf("%s (%s) - %s", entry.ID, entry.Name, ep.CVEID),
		CVEID:        ep.CVEID,
		BaseScore:    ep.Metadata.BaseScore,
		ReachableIDs: []string{},
	}
	if opts.KnownExploited != nil {
		out.KnownExploited = opts.KnownExploited(ep.CVEID)
	}

	visited := make([]bool, g.Len())
	edgeSeen := make(map[types.Edge]struct{})
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if visited[v] {
			continue
		}
		visited[v] = true

		src := g.Asset(v)
		for _, w := range g.Successors(v) {
			tgt := g.Asset(w)
			if !constraint.Admit(src, tgt, &ep.Metadata, roles, opts.MinSeverity) {
				continue
			}
			if !visited[w] {
				queue = append(queue, w)
			}
			e := types.Edge{Source: src.ID, Target: tgt.ID}
			if _, ok := edgeSeen[e]; !ok {
				edgeSeen[e] = struct{}{}
				out.Edges = append(out.Edges, e)
			}
		}
	}
	visited[start] = false

	for i, ok := range visited {
		if ok {
			out.ReachableIDs = append(out.ReachableIDs, g.Asset(i).ID)
		}
	}
	sort.Strings(out.ReachableIDs)
	out.Reachable = make([]string, len(out.ReachableIDs))
	for i, id := range out.ReachableIDs {
		a, _ := g.Lookup(id)
		out.Reachable[i] = Summary(a)
	}
	return out
}

// Summary is the one-line description of a reachable asset.
func Summary(a *types.Asset) string {
	kind := a.Type
	if kind == "" {
		kind = "N/A"
	}
	return fmt.Sprintf("%s (%s, %s, CVEs: %d, Score: %.1f)", a.ID, a.Name, kind, len(a.CVEs), a.TotalSeverity())
}

func unionEdges(results []EntryResult) []types.Edge {
	seen := make(map[types.Edge]struct{})
	edges := []types.Edge{}
	for _, r := range results {
		for _, e := range r.Edges {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}
