// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// ParseSoftwareInventory reads node_id,software_id rows. Extra columns are
// ignored; the header row locates the two required ones.
func ParseSoftwareInventory(r io.Reader) (map[string][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading software inventory header: %w", err)
	}
	nodeCol, swCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "node_id":
			nodeCol = i
		case "software_id":
			swCol = i
		}
	}
	if nodeCol < 0 || swCol < 0 {
		return nil, fmt.Errorf("%w: software inventory needs node_id and software_id columns", types.ErrMalformedInput)
	}

	sets := make(map[string]map[string]struct{})
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading software inventory: %w", err)
		}
		if nodeCol >= len(row) || swCol >= len(row) {
			continue
		}
		node, sw := strings.TrimSpace(row[nodeCol]), strings.TrimSpace(row[swCol])
		if node == "" || sw == "" {
			continue
		}
		if sets[node] == nil {
			sets[node] = make(map[string]struct{})
		}
		sets[node][sw] = struct{}{}
	}

	out := make(map[string][]string, len(sets))
	for node, set := range sets {
		out[node] = sortedKeys(set)
	}
	return out, nil
}

// MergeSoftware adds inventory rows to each asset's software identifiers,
// deduplicated and sorted.
func MergeSoftware(assets []types.Asset, inventory map[string][]string) {
	for i := range assets {
		extra := inventory[assets[i].ID]
		if len(extra) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(assets[i].SoftwareIDs)+len(extra))
		for _, s := range assets[i].SoftwareIDs {
			set[s] = struct{}{}
		}
		for _, s := range extra {
			set[s] = struct{}{}
		}
		merged := make([]string, 0, len(set))
		for s := range set {
			merged = append(merged, s)
		}
		sort.Strings(merged)
		assets[i].SoftwareIDs = merged
	}
}
