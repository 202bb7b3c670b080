// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"strings"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Role is the coarse access level an attacker needs to act on an asset.
type Role string

const (
	RoleStorageAdmin   Role = "SA"
	RoleIT             Role = "IT"
	RoleEndpoint       Role = "EP"
	RoleInfrastructure Role = "INFRA"
	RoleGeneral        Role = "GENERAL"
)

var categoryRoles = map[string]Role{
	"san":              RoleStorageAdmin,
	"sanarchive":       RoleStorageAdmin,
	"sanarchivebackup": RoleStorageAdmin,
	"server":           RoleIT,
	"workstation":      RoleEndpoint,
	"switch":           RoleInfrastructure,
	"router":           RoleInfrastructure,
	"firewall":         RoleInfrastructure,
}

// RoleFor derives the role from an asset category. Case, spaces, hyphens
// and underscores are ignored; unknown categories map to RoleGeneral.
func RoleFor(category string) Role {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(category))
	if role, ok := categoryRoles[key]; ok {
		return role
	}
	return RoleGeneral
}

// Privileges maps every asset to its role.
func Privileges(assets []types.Asset) map[string]Role {
	roles := make(map[string]Role, len(assets))
	for i := range assets {
		roles[assets[i].ID] = RoleFor(assets[i].Type)
	}
	return roles
}

// HasAccess reports whether an attacker holding the attacker role may act
// on target. Targets without a declared role are unrestricted.
func HasAccess(roles map[string]Role, attacker Role, target string) bool {
	required, ok := roles[target]
	if !ok {
		return true
	}
	return attacker == required
}
