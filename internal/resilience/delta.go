// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Delta is the effect of a what-if change on the scores.
type Delta struct {
	SystemBefore float64            `json:"system_before"`
	SystemAfter  float64            `json:"system_after"`
	Changed      map[string]float64 `json:"changed,omitempty"`
}

// Compare reports the system score change and every asset whose score moved.
func Compare(before, after *types.ResilienceResult) Delta {
	d := Delta{SystemBefore: before.SystemScore, SystemAfter: after.SystemScore}
	for _, s := range after.NodeScores {
		prev, ok := before.Score(s.NodeID)
		if !ok || prev == s.ResilienceScore {
			continue
		}
		if d.Changed == nil {
			d.Changed = make(map[string]float64)
		}
		d.Changed[s.NodeID] = Round(s.ResilienceScore-prev, 5)
	}
	return d
}
