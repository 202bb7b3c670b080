// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import "strings"

// AttackVector is the CVSS attack-vector (v3) or access-vector (v2) class.
type AttackVector string

const (
	AttackVectorNetwork         AttackVector = "NETWORK"
	AttackVectorAdjacentNetwork AttackVector = "ADJACENT_NETWORK"
	AttackVectorLocal           AttackVector = "LOCAL"
	AttackVectorPhysical        AttackVector = "PHYSICAL"
)

// PrivilegesRequired is the CVSS privileges-required class. CVSS v2 records
// carry PrivilegesNotApplicable.
type PrivilegesRequired string

const (
	PrivilegesNone          PrivilegesRequired = "NONE"
	PrivilegesLow           PrivilegesRequired = "LOW"
	PrivilegesHigh          PrivilegesRequired = "HIGH"
	PrivilegesNotApplicable PrivilegesRequired = "NA"
)

// UserInteraction is the CVSS user-interaction class.
type UserInteraction string

const (
	UserInteractionNone          UserInteraction = "NONE"
	UserInteractionRequired      UserInteraction = "REQUIRED"
	UserInteractionPassive       UserInteraction = "PASSIVE"
	UserInteractionNotApplicable UserInteraction = "NA"
)

// ParseAttackVector normalises NVD spellings ("ADJACENT", "adjacent_network")
// to the canonical class. Unknown values are returned upper-cased.
func ParseAttackVector(s string) AttackVector {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "N":
		return AttackVectorNetwork
	case "A", "ADJACENT":
		return AttackVectorAdjacentNetwork
	case "L":
		return AttackVectorLocal
	case "P":
		return AttackVectorPhysical
	}
	return AttackVector(v)
}

// ParsePrivilegesRequired normalises a privileges-required value.
func ParsePrivilegesRequired(s string) PrivilegesRequired {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "N":
		return PrivilegesNone
	case "L":
		return PrivilegesLow
	case "H":
		return PrivilegesHigh
	case "", "X":
		return PrivilegesNotApplicable
	}
	return PrivilegesRequired(v)
}

// ParseUserInteraction normalises a user-interaction value.
func ParseUserInteraction(s string) UserInteraction {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "N":
		return UserInteractionNone
	case "R":
		return UserInteractionRequired
	case "P":
		return UserInteractionPassive
	case "", "X":
		return UserInteractionNotApplicable
	}
	return UserInteraction(v)
}

// CVSSMetadata is one record of the nvd_results.json cache.
type CVSSMetadata struct {
	BaseScore          float64            `json:"base_score"`
	AttackVector       AttackVector       `json:"attack_vector"`
	PrivilegesRequired PrivilegesRequired `json:"privileges_required"`
	UserInteraction    UserInteraction    `json:"user_interaction"`
	VectorString       string             `json:"vector_string"`
	CVSSVersion        string             `json:"cvss_version"`
	// Error is set when the fetcher could not resolve the CVE; such records
	// never qualify as entry points.
	Error *string `json:"error"`
}

// Usable reports whether the record carries CVSS data.
func (m *CVSSMetadata) Usable() bool {
	return m != nil && (m.Error == nil || *m.Error == "")
}

// MetadataCatalog maps CVE identifiers to their cached CVSS metadata.
type MetadataCatalog map[string]CVSSMetadata

// Lookup returns the usable metadata for id, or nil when it is absent or
// recorded as a fetch error.
func (c MetadataCatalog) Lookup(id string) *CVSSMetadata {
	m, ok := c[id]
	if !ok || !m.Usable() {
		return nil
	}
	return &m
}
