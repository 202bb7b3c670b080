// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/bonial-oss/resilience-sim/internal/config"
	"github.com/bonial-oss/resilience-sim/internal/fuzzy"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Dataset file names.
const (
	AssetsFile            = "Nodes_Complete.json"
	CriticalFunctionsFile = "Critical_Functions.json"
	RiskFactorsFile       = "Risk_Factors.json"
	FuzzySetFile          = "Fuzzy_Set.json"
	WeightMatrixFile      = "Risk_Factor_Weights.json"
	SoftwareInventoryFile = "software_inventory.csv"
	MetadataFile          = "nvd_results.json"
)

var validate = validator.New()

// Dataset is a fully loaded, validated snapshot of a data directory.
type Dataset struct {
	Assets    []types.Asset
	Functions []types.CriticalFunction
	WorkAreas []types.WorkArea
	FuzzySets types.FuzzySets
	Issues    []types.Issue
}

// Load reads every dataset file from dir. Only the asset file is required.
// Malformed records are skipped and reported in Dataset.Issues.
func Load(dir string, log logrus.FieldLogger) (*Dataset, error) {
	data, err := os.ReadFile(filepath.Join(dir, AssetsFile))
	if err != nil {
		return nil, fmt.Errorf("reading assets: %w", err)
	}
	assets, issues, err := ParseAssets(data)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Assets: assets, Issues: issues}

	if f, err := os.Open(filepath.Join(dir, SoftwareInventoryFile)); err == nil {
		inventory, err := ParseSoftwareInventory(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		MergeSoftware(ds.Assets, inventory)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("opening software inventory: %w", err)
	}

	if data, ok, err := readOptional(dir, CriticalFunctionsFile); err != nil {
		return nil, err
	} else if ok {
		var doc types.CriticalFunctionFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", CriticalFunctionsFile, err)
		}
		if err := validate.Struct(&doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", types.ErrMalformedInput, CriticalFunctionsFile, formatValidationError(err))
		}
		ds.Functions = doc.Functions
	}

	if data, ok, err := readOptional(dir, RiskFactorsFile); err != nil {
		return nil, err
	} else if ok {
		var doc types.RiskFactorFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", RiskFactorsFile, err)
		}
		if err := validate.Struct(&doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", types.ErrMalformedInput, RiskFactorsFile, formatValidationError(err))
		}
		ds.WorkAreas = doc.WorkAreas
	}

	sets, err := loadFuzzySets(dir)
	if err != nil {
		return nil, err
	}
	ds.FuzzySets = sets

	for _, issue := range ds.Issues {
		log.WithField("kind", issue.KindName()).Warn(issue.Err())
	}
	log.WithFields(logrus.Fields{
		"assets":     len(ds.Assets),
		"functions":  len(ds.Functions),
		"work_areas": len(ds.WorkAreas),
		"issues":     len(ds.Issues),
	}).Debug("dataset loaded")
	return ds, nil
}

func loadFuzzySets(dir string) (types.FuzzySets, error) {
	data, ok, err := readOptional(dir, FuzzySetFile)
	if err != nil {
		return nil, err
	}
	if ok {
		return ParseFuzzySets(data)
	}
	data, ok, err = readOptional(dir, WeightMatrixFile)
	if err != nil || !ok {
		return nil, err
	}
	var m types.WeightMatrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", WeightMatrixFile, err)
	}
	if err := config.ValidateWeightMatrix(m); err != nil {
		return nil, err
	}
	return fuzzy.FromWeightMatrix(m), nil
}

// ParseFuzzySets decodes and validates a Fuzzy_Set.json document.
func ParseFuzzySets(data []byte) (types.FuzzySets, error) {
	var sets types.FuzzySets
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FuzzySetFile, err)
	}
	for factor, levels := range sets {
		for level, set := range levels {
			if err := validate.Struct(set); err != nil {
				return nil, fmt.Errorf("%w: fuzzy set %s/%s: %w", types.ErrMalformedInput, factor, level, formatValidationError(err))
			}
		}
	}
	return sets, nil
}

// LoadMetadata reads a CVSS metadata catalog. A missing file yields a nil
// catalog and no error.
func LoadMetadata(path string) (types.MetadataCatalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var catalog types.MetadataCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	if catalog == nil {
		catalog = types.MetadataCatalog{}
	}
	return catalog, nil
}

func readOptional(dir, name string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, true, nil
}

// FunctionTables overlays the loaded critical functions onto the configured
// weight and work-area tables. The inputs are not modified.
func FunctionTables(weights map[string]float64, areas map[string]string, fns []types.CriticalFunction) (map[string]float64, map[string]string) {
	w := make(map[string]float64, len(weights)+len(fns))
	for k, v := range weights {
		w[k] = v
	}
	a := make(map[string]string, len(areas)+len(fns))
	for k, v := range areas {
		a[k] = v
	}
	for _, fn := range fns {
		w[fn.ID] = fn.Weight
		if fn.WorkArea != "" {
			a[fn.ID] = fn.WorkArea
		}
	}
	return w, a
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
