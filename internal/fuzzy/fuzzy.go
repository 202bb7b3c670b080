// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package fuzzy converts categorical environmental risk ratings into numeric
// contributions using triangular fuzzy sets.
package fuzzy

import (
	"math"
	"sort"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Membership evaluates the triangular membership of value in set. A
// vertical slope (left == peak or peak == right) yields 1 at the peak.
func Membership(value float64, set types.FuzzySet) float64 {
	switch {
	case value == set.Peak && (set.Left == set.Peak || set.Peak == set.Right):
		return 1
	case set.Left <= value && value <= set.Peak:
		return (value - set.Left) / (set.Peak - set.Left)
	case set.Peak < value && value <= set.Right:
		return (set.Right - value) / (set.Right - set.Peak)
	default:
		return 0
	}
}

// Contribution is the numeric value of one (factor, level) rating: the peak
// of its fuzzy set. NA and unknown pairs contribute 0.
func Contribution(sets types.FuzzySets, factor, level string) float64 {
	if level == types.LevelNA {
		return 0
	}
	set, ok := sets[factor][level]
	if !ok {
		return 0
	}
	return set.Peak
}

// WorkAreaRisk sums the contributions of every factor in the work area's
// profile in factor-name order, rounded to one decimal.
func WorkAreaRisk(area types.WorkArea, sets types.FuzzySets) float64 {
	factors := make([]string, 0, len(area.RiskFactors))
	for factor := range area.RiskFactors {
		factors = append(factors, factor)
	}
	sort.Strings(factors)

	var total float64
	for _, factor := range factors {
		total += Contribution(sets, factor, area.RiskFactors[factor])
	}
	return round(total, 1)
}

// AllWorkAreas evaluates every work area by name.
func AllWorkAreas(areas []types.WorkArea, sets types.FuzzySets) map[string]float64 {
	out := make(map[string]float64, len(areas))
	for _, a := range areas {
		out[a.Name] = WorkAreaRisk(a, sets)
	}
	return out
}

// AssetRisk sums the risk of the work areas behind each of the asset's
// critical functions. Functions without a mapped work area, and work areas
// without a profile, contribute 0.
func AssetRisk(functions []string, functionAreas map[string]string, areaRisk map[string]float64) float64 {
	var total float64
	for _, fn := range functions {
		area, ok := functionAreas[fn]
		if !ok {
			continue
		}
		total += areaRisk[area]
	}
	return total
}

// FromWeightMatrix turns a weight matrix into triangular sets peaking at each
// weight, so Contribution returns the weight itself.
func FromWeightMatrix(m types.WeightMatrix) types.FuzzySets {
	sets := make(types.FuzzySets, len(m))
	for factor, levels := range m {
		sets[factor] = make(map[string]types.FuzzySet, len(levels))
		for level, w := range levels {
			sets[factor][level] = types.FuzzySet{Left: 0, Peak: w, Right: types.MaxRiskWeight}
		}
	}
	return sets
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
