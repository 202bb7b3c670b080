// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	aqtable "github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/bonial-oss/resilience-sim/internal/resilience"
	"github.com/bonial-oss/resilience-sim/internal/simulate"
	"github.com/bonial-oss/resilience-sim/internal/state"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Score bands used for colouring.
const (
	weakScore     = 30.0
	moderateScore = 60.0
)

// TableConfig controls row order and styling.
type TableConfig struct {
	SortBy     string // "score", "id", "name", "" (preserve order)
	IsTerminal bool   // true when output goes to a terminal (enables ANSI styling)
}

// IsOutputToTerminal returns true if the writer is stdout connected to a
// character device (TTY).
func IsOutputToTerminal(output io.Writer) bool {
	return output == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
}

// WriteScores renders the system score, one row per asset and any issues.
func WriteScores(w io.Writer, res *types.ResilienceResult, cfg TableConfig) error {
	writeTitle(w, "Resilience Scores", cfg.IsTerminal)
	fmt.Fprintf(w, "System resilience score: %s\n", formatScore(res.SystemScore, cfg.IsTerminal))
	if !res.EigenvectorConverged {
		fmt.Fprintln(w, "Eigenvector centrality did not converge; treated as 0.")
	}
	fmt.Fprintln(w)

	rows := make([]types.NodeScore, len(res.NodeScores))
	copy(rows, res.NodeScores)
	sortScores(rows, cfg.SortBy)

	tw := newTableWriter(w, cfg.IsTerminal, false)
	tw.SetHeaders("Node ID", "Name", "Resilience Score")
	tw.SetAlignment(aqtable.AlignLeft, aqtable.AlignLeft, aqtable.AlignRight)
	for _, s := range rows {
		tw.AddRow(s.NodeID, s.NodeName, formatScore(s.ResilienceScore, cfg.IsTerminal))
	}
	tw.Render()

	writeIssues(w, res.Issues, cfg.IsTerminal)
	return nil
}

// WriteMetrics renders the per-factor breakdown behind each score.
func WriteMetrics(w io.Writer, res *types.ResilienceResult, cfg TableConfig) error {
	writeTitle(w, "Resilience Factors", cfg.IsTerminal)

	byID := make(map[string]float64, len(res.NodeScores))
	for _, s := range res.NodeScores {
		byID[s.NodeID] = s.ResilienceScore
	}
	rows := make([]types.NodeMetrics, len(res.Metrics))
	copy(rows, res.Metrics)
	switch cfg.SortBy {
	case "score":
		sort.SliceStable(rows, func(i, j int) bool { return byID[rows[i].NodeID] < byID[rows[j].NodeID] })
	case "id":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].NodeID < rows[j].NodeID })
	case "name":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].NodeName < rows[j].NodeName })
	}

	tw := newTableWriter(w, cfg.IsTerminal, false)
	tw.SetHeaders("Node ID", "Name", "CVE", "Centrality", "Degree", "Switch", "Redundancy", "Criticality", "Env. Risk", "Score")
	for _, m := range rows {
		tw.AddRow(
			m.NodeID,
			m.NodeName,
			fmt.Sprintf("%.1f", m.CVEScore),
			fmt.Sprintf("%.4f", m.Centrality),
			fmt.Sprintf("%.0f", m.Connectedness),
			fmt.Sprintf("%.1f", m.SwitchDependency),
			fmt.Sprintf("%.1f", m.Redundancy),
			fmt.Sprintf("%.1f", m.Criticality),
			fmt.Sprintf("%.1f", m.EnvironmentalRisk),
			formatScore(byID[m.NodeID], cfg.IsTerminal),
		)
	}
	tw.Render()
	return nil
}

// WriteDelta renders the outcome of a what-if recomputation.
func WriteDelta(w io.Writer, label string, d resilience.Delta, cfg TableConfig) error {
	writeTitle(w, label, cfg.IsTerminal)
	fmt.Fprintf(w, "System resilience score: %.5f -> %.5f (%+.5f)\n\n",
		d.SystemBefore, d.SystemAfter, resilience.Round(d.SystemAfter-d.SystemBefore, 5))
	if len(d.Changed) == 0 {
		fmt.Fprintln(w, "No asset scores changed.")
		return nil
	}
	ids := make([]string, 0, len(d.Changed))
	for id := range d.Changed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := newTableWriter(w, cfg.IsTerminal, false)
	tw.SetHeaders("Node ID", "Change")
	tw.SetAlignment(aqtable.AlignLeft, aqtable.AlignRight)
	for _, id := range ids {
		tw.AddRow(id, fmt.Sprintf("%+.5f", d.Changed[id]))
	}
	tw.Render()
	return nil
}

// WriteSimulation renders one row per (entry point, reachable asset) pair.
// Entry cells are merged across the rows of one traversal.
func WriteSimulation(w io.Writer, res *simulate.Result, cfg TableConfig) error {
	writeTitle(w, "Attack Simulation", cfg.IsTerminal)
	fmt.Fprintf(w, "Run: %s\n", res.RunID)
	if res.Status != simulate.StatusCompleted {
		fmt.Fprintln(w, res.Message)
		writeIssues(w, res.Issues, cfg.IsTerminal)
		return nil
	}
	fmt.Fprintf(w, "Entry points: %d, attack edges: %d\n\n", len(res.Entries), len(res.Edges))

	tw := newTableWriter(w, cfg.IsTerminal, true)
	tw.SetHeaders("Entry Point", "Vulnerability", "Base Score", "KEV", "Reachable Asset")
	for _, e := range res.Entries {
		entry := e.EntryNode + " (" + e.EntryName + ")"
		vuln := e.CVEID
		base := fmt.Sprintf("%.1f", e.BaseScore)
		kev := formatKEV(e.KnownExploited, cfg.IsTerminal)
		if len(e.Reachable) == 0 {
			tw.AddRow(entry, vuln, base, kev, "-")
			continue
		}
		for _, line := range e.Reachable {
			tw.AddRow(entry, vuln, base, kev, line)
		}
	}
	tw.Render()

	writeIssues(w, res.Issues, cfg.IsTerminal)
	return nil
}

// WriteStates renders state-adjusted scores.
func WriteStates(w io.Writer, adjustments []state.Adjustment, cfg TableConfig) error {
	writeTitle(w, "Operational States", cfg.IsTerminal)

	rows := make([]state.Adjustment, len(adjustments))
	copy(rows, adjustments)
	switch cfg.SortBy {
	case "score":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].AdjustedScore < rows[j].AdjustedScore })
	case "id":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].NodeID < rows[j].NodeID })
	case "name":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].NodeName < rows[j].NodeName })
	}

	tw := newTableWriter(w, cfg.IsTerminal, false)
	tw.SetHeaders("Node ID", "Name", "State", "Worst Severity", "Initial Score", "Adjusted Score")
	for _, a := range rows {
		tw.AddRow(
			a.NodeID,
			a.NodeName,
			formatState(a.State, cfg.IsTerminal),
			fmt.Sprintf("%.1f", a.WorstSeverity),
			fmt.Sprintf("%.5f", a.InitialScore),
			formatScore(a.AdjustedScore, cfg.IsTerminal),
		)
	}
	tw.Render()
	return nil
}

// WriteCVEImpacts renders the vulnerability spread summary.
func WriteCVEImpacts(w io.Writer, impacts []resilience.CVEImpact, cfg TableConfig) error {
	writeTitle(w, fmt.Sprintf("Vulnerability Impact (Total: %d)", len(impacts)), cfg.IsTerminal)

	tw := newTableWriter(w, cfg.IsTerminal, false)
	tw.SetHeaders("Vulnerability", "Severity", "Assets Affected", "Impact", "Assets")
	for _, c := range impacts {
		tw.AddRow(
			c.CVEID,
			fmt.Sprintf("%.1f", c.Severity),
			fmt.Sprintf("%d", c.AssetsAffected),
			fmt.Sprintf("%.2f", c.Impact),
			strings.Join(c.AssetIDs, ", "),
		)
	}
	tw.Render()
	return nil
}

// writeTitle writes a section title, underlined on terminals.
func writeTitle(w io.Writer, title string, isTerminal bool) {
	if isTerminal {
		_ = tml.Fprintf(w, "<underline><bold>%s</bold></underline>\n", title)
		return
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(title)))
}

// writeIssues renders the non-fatal issues section, if any.
func writeIssues(w io.Writer, issues []types.Issue, isTerminal bool) {
	if len(issues) == 0 {
		return
	}
	title := fmt.Sprintf("Issues (Total: %d)", len(issues))
	if isTerminal {
		_ = tml.Fprintf(w, "\n<underline>%s</underline>\n\n", title)
	} else {
		fmt.Fprintf(w, "\n%s\n", title)
		fmt.Fprintf(w, "%s\n", strings.Repeat("=", utf8.RuneCountInString(title)))
	}

	tw := newTableWriter(w, isTerminal, false)
	tw.SetHeaders("Kind", "Node ID", "Detail")
	for _, issue := range issues {
		id := issue.AssetID
		if id == "" {
			id = "-"
		}
		tw.AddRow(issue.KindName(), id, issue.Detail)
	}
	tw.Render()
}

// newTableWriter creates a table writer with borders and row separators.
// When isTerminal is true, header and line styles use ANSI formatting.
func newTableWriter(w io.Writer, isTerminal, autoMerge bool) *aqtable.Table {
	tw := aqtable.New(w)
	if isTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetBorders(true)
	tw.SetAutoMerge(autoMerge)
	tw.SetRowLines(true)
	return tw
}

var (
	weakColor     = color.New(color.FgRed).SprintFunc()
	moderateColor = color.New(color.FgYellow).SprintFunc()
	strongColor   = color.New(color.FgGreen).SprintFunc()
)

// formatScore prints a score with five decimals, coloured by band on
// terminals.
func formatScore(v float64, isTerminal bool) string {
	s := fmt.Sprintf("%.5f", v)
	if !isTerminal {
		return s
	}
	switch {
	case v < weakScore:
		return weakColor(s)
	case v < moderateScore:
		return moderateColor(s)
	default:
		return strongColor(s)
	}
}

var stateColors = map[string]func(a ...any) string{
	state.Normal.Name:      strongColor,
	state.Recovery.Name:    color.New(color.FgCyan).SprintFunc(),
	state.Degraded.Name:    moderateColor,
	state.UnderAttack.Name: weakColor,
	state.Failure.Name:     color.New(color.FgHiRed, color.Bold).SprintFunc(),
}

func formatState(name string, isTerminal bool) string {
	if !isTerminal {
		return name
	}
	if fn, ok := stateColors[name]; ok {
		return fn(name)
	}
	return name
}

// formatKEV returns "YES" for known-exploited vulnerabilities, "NO" otherwise.
func formatKEV(listed, isTerminal bool) string {
	if !listed {
		return "NO"
	}
	if isTerminal {
		return weakColor("YES")
	}
	return "YES"
}

// sortScores sorts score rows; "score" puts the weakest asset first.
func sortScores(rows []types.NodeScore, sortBy string) {
	switch sortBy {
	case "score":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].ResilienceScore < rows[j].ResilienceScore
		})
	case "id":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].NodeID < rows[j].NodeID
		})
	case "name":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].NodeName < rows[j].NodeName
		})
	default:
		// preserve input order
	}
}
