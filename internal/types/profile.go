// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

// LevelNA marks a risk factor that does not apply to a work area.
const LevelNA = "NA"

// CriticalFunction is one organisational function an asset may serve.
type CriticalFunction struct {
	ID       string   `json:"Function_Number" validate:"required"`
	WorkArea string   `json:"Work_Area"`
	Tier     string   `json:"Criticality" validate:"omitempty,oneof=Low Medium High low medium high"`
	Weight   float64  `json:"Criticality_Value" validate:"gte=0"`
	Nodes    []string `json:"Nodes,omitempty"`
}

// CriticalFunctionFile is the Critical_Functions.json document.
type CriticalFunctionFile struct {
	Functions []CriticalFunction `json:"System_Critical_Functions" validate:"dive"`
}

// WorkArea is an organisational work area and its selected risk levels.
type WorkArea struct {
	Name string `json:"Work_Area" validate:"required"`
	// RiskFactors maps factor name to the selected categorical level.
	RiskFactors map[string]string `json:"Risk_Factors"`
}

// RiskFactorFile is the Risk_Factors.json document.
type RiskFactorFile struct {
	WorkAreas []WorkArea `json:"work_areas" validate:"dive"`
}

// FuzzySet is a triangular membership definition.
type FuzzySet struct {
	Left  float64 `json:"left"`
	Peak  float64 `json:"peak" validate:"gtefield=Left"`
	Right float64 `json:"right" validate:"gtefield=Peak"`
}

// FuzzySets maps factor name -> level name -> triangular set (Fuzzy_Set.json).
type FuzzySets map[string]map[string]FuzzySet

// WeightMatrix maps factor name -> level name -> weight in [0, 2.0]
// (Risk_Factor_Weights.json).
type WeightMatrix map[string]map[string]float64

// MaxRiskWeight bounds every entry of a WeightMatrix.
const MaxRiskWeight = 2.0
