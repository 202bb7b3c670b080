// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package constraint holds the admission predicates that gate lateral
// movement between assets.
package constraint

import (
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// RackOK allows movement inside one rack, or across racks when the driving
// vulnerability is network-exploitable. Assets without a rack share the
// empty rack.
func RackOK(src, tgt *types.Asset, meta *types.CVSSMetadata) bool {
	if src.Rack == tgt.Rack {
		return true
	}
	return meta != nil && meta.AttackVector == types.AttackVectorNetwork
}

// SharesSoftware reports whether the two assets have at least one installed
// software identifier in common.
func SharesSoftware(a, b *types.Asset) bool {
	if len(a.SoftwareIDs) == 0 || len(b.SoftwareIDs) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a.SoftwareIDs))
	for _, s := range a.SoftwareIDs {
		set[s] = struct{}{}
	}
	for _, s := range b.SoftwareIDs {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// ValidEntryPoint reports whether cveID on a can seed an attack. Missing or
// failed metadata never qualifies.
func ValidEntryPoint(a *types.Asset, cveID string, meta *types.CVSSMetadata) bool {
	if !a.HasCVE(cveID) || !meta.Usable() {
		return false
	}
	switch meta.AttackVector {
	case types.AttackVectorNetwork, types.AttackVectorAdjacentNetwork, types.AttackVectorLocal:
	default:
		return false
	}
	switch meta.PrivilegesRequired {
	case types.PrivilegesNone, types.PrivilegesLow, types.PrivilegesNotApplicable:
	default:
		return false
	}
	switch meta.UserInteraction {
	case types.UserInteractionNone, types.UserInteractionNotApplicable:
		return true
	}
	return false
}

// RedundantEquivalent reports whether candidate is resilience-neutral or
// better than reference: the same critical-function set, no higher
// resilience penalty and no higher summed severity.
func RedundantEquivalent(candidate, reference *types.Asset) bool {
	return sameSet(candidate.CriticalFunctions, reference.CriticalFunctions) &&
		candidate.Penalty() <= reference.Penalty() &&
		candidate.TotalSeverity() <= reference.TotalSeverity()
}

func sameSet(a, b []string) bool {
	sa := make(map[string]struct{}, len(a))
	for _, s := range a {
		sa[s] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, ok := sa[s]; !ok {
			return false
		}
		sb[s] = struct{}{}
	}
	return len(sa) == len(sb)
}

// Decision records each predicate of one edge evaluation.
type Decision struct {
	RackOK      bool
	SoftwareOK  bool
	PrivilegeOK bool
	SeverityOK  bool
}

// Admitted applies the combined rule: (rack or shared software) and
// privilege, with both endpoints above the severity threshold.
func (d Decision) Admitted() bool {
	return (d.RackOK || d.SoftwareOK) && d.PrivilegeOK && d.SeverityOK
}

// Evaluate runs every predicate for the directed edge src -> tgt.
func Evaluate(src, tgt *types.Asset, meta *types.CVSSMetadata, roles map[string]Role, minSeverity float64) Decision {
	return Decision{
		RackOK:      RackOK(src, tgt, meta),
		SoftwareOK:  SharesSoftware(src, tgt),
		PrivilegeOK: HasAccess(roles, roles[src.ID], tgt.ID),
		SeverityOK:  src.MaxSeverity() >= minSeverity && tgt.MaxSeverity() >= minSeverity,
	}
}

// Admit reports whether src -> tgt is traversable.
func Admit(src, tgt *types.Asset, meta *types.CVSSMetadata, roles map[string]Role, minSeverity float64) bool {
	return Evaluate(src, tgt, meta, roles, minSeverity).Admitted()
}
