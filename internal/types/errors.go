// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error kinds. Everything except ErrDuplicateAsset is reported as an Issue
// and never aborts a computation.
var (
	ErrMalformedInput    = errors.New("malformed input")
	ErrMissingMetadata   = errors.New("missing CVSS metadata")
	ErrNumericDegenerate = errors.New("numeric degenerate")
	ErrConfiguration     = errors.New("configuration error")
	ErrDuplicateAsset    = errors.New("duplicate asset identifier")
)

// Issue is a non-fatal problem found while loading or computing.
type Issue struct {
	Kind    error  `json:"-"`
	AssetID string `json:"node_id,omitempty"`
	Detail  string `json:"detail"`
}

// KindName is the short name used in logs, metrics and JSON output.
func (i Issue) KindName() string {
	switch {
	case errors.Is(i.Kind, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(i.Kind, ErrMissingMetadata):
		return "missing_metadata"
	case errors.Is(i.Kind, ErrNumericDegenerate):
		return "numeric_degenerate"
	case errors.Is(i.Kind, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

// Err wraps the issue's kind so errors.Is works on it.
func (i Issue) Err() error {
	if i.AssetID == "" {
		return fmt.Errorf("%w: %s", i.Kind, i.Detail)
	}
	return fmt.Errorf("%w: %s: %s", i.Kind, i.AssetID, i.Detail)
}

// MarshalJSON emits the kind by name.
func (i Issue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		AssetID string `json:"node_id,omitempty"`
		Detail  string `json:"detail"`
	}{i.KindName(), i.AssetID, i.Detail})
}
