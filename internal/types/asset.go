// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import "sort"

// Asset is a single modelled infrastructure component as stored in
// Nodes_Complete.json. Required fields carry validate tags; everything else
// is optional and has a documented default.
type Asset struct {
	ID                string             `json:"node_id" validate:"required"`
	Name              string             `json:"node_name" validate:"required"`
	Type              string             `json:"node_type"`
	CriticalFunctions []string           `json:"critical_functions" validate:"dive,required"`
	ConnectedTo       []string           `json:"connected_to" validate:"dive,required"`
	CVEs              []string           `json:"CVE" validate:"dive,required"`
	CVEScores         map[string]float64 `json:"CVE_NVD" validate:"dive,keys,required,endkeys,gte=0,lte=10"`
	Rack              string             `json:"rack_name,omitempty"`
	Redundancy        bool               `json:"redundancy"`
	SwitchDependency  bool               `json:"switch_dependency"`
	// SwitchDependencyWeight overrides the configured default weight when set.
	SwitchDependencyWeight *float64 `json:"switch_dependency_weight,omitempty" validate:"omitempty,gte=0"`
	CriticalDataStored     bool     `json:"critical_data_stored"`
	BackupRole             string   `json:"backup_role,omitempty"`
	// ResiliencePenalty defaults to 1.0 when absent.
	ResiliencePenalty *float64 `json:"resilience_penalty,omitempty"`
	SoftwareIDs       []string `json:"software_ids,omitempty"`
}

// DefaultResiliencePenalty applies when an asset carries no explicit penalty.
const DefaultResiliencePenalty = 1.0

// Penalty returns the asset's resilience penalty or the default.
func (a *Asset) Penalty() float64 {
	if a.ResiliencePenalty == nil {
		return DefaultResiliencePenalty
	}
	return *a.ResiliencePenalty
}

// HasCVE reports whether id appears in the asset's vulnerability list.
func (a *Asset) HasCVE(id string) bool {
	for _, c := range a.CVEs {
		if c == id {
			return true
		}
	}
	return false
}

// TotalSeverity sums every severity in the asset's CVE_NVD map in
// identifier order. Entries without a matching CVE list item are summed
// too; input.ParseAssets removes them when loading a dataset.
func (a *Asset) TotalSeverity() float64 {
	ids := make([]string, 0, len(a.CVEScores))
	for id := range a.CVEScores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sum float64
	for _, id := range ids {
		sum += a.CVEScores[id]
	}
	return sum
}

// MaxSeverity returns the highest single severity, or 0 with no vulnerabilities.
func (a *Asset) MaxSeverity() float64 {
	var m float64
	for _, s := range a.CVEScores {
		if s > m {
			m = s
		}
	}
	return m
}

// Clone returns a deep copy so callers can derive what-if variants without
// touching the snapshot they were given.
func (a *Asset) Clone() Asset {
	c := *a
	c.CriticalFunctions = append([]string(nil), a.CriticalFunctions...)
	c.ConnectedTo = append([]string(nil), a.ConnectedTo...)
	c.CVEs = append([]string(nil), a.CVEs...)
	c.SoftwareIDs = append([]string(nil), a.SoftwareIDs...)
	if a.CVEScores != nil {
		c.CVEScores = make(map[string]float64, len(a.CVEScores))
		for k, v := range a.CVEScores {
			c.CVEScores[k] = v
		}
	}
	if a.SwitchDependencyWeight != nil {
		w := *a.SwitchDependencyWeight
		c.SwitchDependencyWeight = &w
	}
	if a.ResiliencePenalty != nil {
		p := *a.ResiliencePenalty
		c.ResiliencePenalty = &p
	}
	return c
}
