// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"sort"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// CVEImpact summarises how widely one vulnerability is spread.
type CVEImpact struct {
	CVEID          string   `json:"cve_id"`
	Severity       float64  `json:"severity"`
	AssetsAffected int      `json:"nodes_affected"`
	Impact         float64  `json:"impact_score"`
	AssetIDs       []string `json:"node_ids"`
}

// CVEImpacts lists every distinct vulnerability with impact = assets
// affected x severity, highest first. When assets disagree on a severity
// the last one in input order wins.
func CVEImpacts(assets []types.Asset) []CVEImpact {
	byID := make(map[string]*CVEImpact)
	var order []string
	for i := range assets {
		a := &assets[i]
		for _, id := range a.CVEs {
			sev, ok := a.CVEScores[id]
			if !ok {
				continue
			}
			c, seen := byID[id]
			if !seen {
				c = &CVEImpact{CVEID: id}
				byID[id] = c
				order = append(order, id)
			}
			c.Severity = sev
			c.AssetIDs = append(c.AssetIDs, a.ID)
		}
	}

	out := make([]CVEImpact, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.AssetsAffected = len(c.AssetIDs)
		c.Impact = Round(float64(c.AssetsAffected)*c.Severity, 2)
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Impact != out[j].Impact {
			return out[i].Impact > out[j].Impact
		}
		return out[i].CVEID < out[j].CVEID
	})
	return out
}

// PatchCVE returns a copy of assets with cveID removed everywhere, plus the
// identifiers of the assets that carried it. The input is not modified.
func PatchCVE(assets []types.Asset, cveID string) ([]types.Asset, []string) {
	out := make([]types.Asset, len(assets))
	var patched []string
	for i := range assets {
		out[i] = assets[i].Clone()
		a := &out[i]
		_, scored := a.CVEScores[cveID]
		if !a.HasCVE(cveID) && !scored {
			continue
		}
		kept := a.CVEs[:0]
		for _, id := range a.CVEs {
			if id != cveID {
				kept = append(kept, id)
			}
		}
		a.CVEs = kept
		delete(a.CVEScores, cveID)
		patched = append(patched, a.ID)
	}
	return out, patched
}
