// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package input

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// ParseAssets decodes an asset array record by record. A record that fails
// to decode or validate is skipped with an Issue; CVE list and severity map
// entries that do not match each other are dropped from both. Duplicate
// identifiers are the only fatal condition.
func ParseAssets(data []byte) ([]types.Asset, []types.Issue, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: asset file is not a JSON array: %w", types.ErrMalformedInput, err)
	}

	var (
		assets []types.Asset
		issues []types.Issue
		seen   = make(map[string]struct{}, len(raw))
	)
	for i, rec := range raw {
		// Peek at the identifier so decode failures can still be attributed.
		var head struct {
			ID any `json:"node_id"`
		}
		_ = json.Unmarshal(rec, &head)
		ref := fmt.Sprintf("record %d", i)
		if id, ok := head.ID.(string); ok && id != "" {
			ref = id
		}

		var a types.Asset
		if err := json.Unmarshal(rec, &a); err != nil {
			issues = append(issues, types.Issue{Kind: types.ErrMalformedInput, AssetID: ref, Detail: "skipped: " + err.Error()})
			continue
		}
		if err := validate.Struct(&a); err != nil {
			issues = append(issues, types.Issue{Kind: types.ErrMalformedInput, AssetID: ref, Detail: "skipped: " + formatValidationError(err).Error()})
			continue
		}
		if _, dup := seen[a.ID]; dup {
			return nil, nil, fmt.Errorf("%w: %q", types.ErrDuplicateAsset, a.ID)
		}
		seen[a.ID] = struct{}{}

		issues = append(issues, reconcileCVEs(&a)...)
		assets = append(assets, a)
	}

	if len(assets) == 0 {
		return nil, issues, fmt.Errorf("%w: no valid assets", types.ErrMalformedInput)
	}
	return assets, issues, nil
}

// reconcileCVEs keeps only vulnerabilities present in both the CVE list and
// the severity map.
func reconcileCVEs(a *types.Asset) []types.Issue {
	var issues []types.Issue
	listed := make(map[string]struct{}, len(a.CVEs))
	kept := a.CVEs[:0]
	for _, id := range a.CVEs {
		if _, dup := listed[id]; dup {
			continue
		}
		listed[id] = struct{}{}
		if _, ok := a.CVEScores[id]; !ok {
			issues = append(issues, types.Issue{
				Kind:    types.ErrMalformedInput,
				AssetID: a.ID,
				Detail:  fmt.Sprintf("%s listed without severity; ignored", id),
			})
			continue
		}
		kept = append(kept, id)
	}
	a.CVEs = kept

	orphaned := make(map[string]struct{})
	for id := range a.CVEScores {
		if _, ok := listed[id]; !ok {
			orphaned[id] = struct{}{}
		}
	}
	for _, id := range sortedKeys(orphaned) {
		delete(a.CVEScores, id)
		issues = append(issues, types.Issue{
			Kind:    types.ErrMalformedInput,
			AssetID: a.ID,
			Detail:  fmt.Sprintf("%s has a severity but is not listed; ignored", id),
		})
	}
	return issues
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "gtefield":
			return fmt.Errorf("%s: must not be below %s", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
