// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Weights are the multipliers applied to each resilience factor.
type Weights struct {
	CVE              float64 `yaml:"cve"`
	Centrality       float64 `yaml:"centrality"`
	Connectedness    float64 `yaml:"connectedness"`
	SwitchDependency float64 `yaml:"switch_dependency"`
	Criticality      float64 `yaml:"criticality"`
	Redundancy       float64 `yaml:"redundancy"`
}

// Eigenvector bounds the power iteration.
type Eigenvector struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

// Scoring holds every tunable of the resilience scorer.
type Scoring struct {
	BaseScore  float64 `yaml:"base_score"`
	ScoreFloor float64 `yaml:"score_floor"`
	Weights    Weights `yaml:"weights"`
	// RedundantFactor and NonRedundantFactor feed the additive redundancy
	// term: +factor*Weights.Redundancy.
	RedundantFactor         float64            `yaml:"redundant_factor"`
	NonRedundantFactor      float64            `yaml:"non_redundant_factor"`
	DefaultSwitchDependency float64            `yaml:"default_switch_dependency"`
	DefaultFunctionWeight   float64            `yaml:"default_function_weight"`
	FunctionWeights         map[string]float64 `yaml:"function_weights"`
	FunctionWorkAreas       map[string]string  `yaml:"function_work_areas"`
	Eigenvector             Eigenvector        `yaml:"eigenvector"`
}

// Simulation holds attack simulation defaults.
type Simulation struct {
	Workers     int     `yaml:"workers"`
	MinSeverity float64 `yaml:"min_severity"`
}

// NVD configures the CVSS metadata fetcher.
type NVD struct {
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	RequestDelay time.Duration `yaml:"request_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	Scoring    Scoring    `yaml:"scoring"`
	Simulation Simulation `yaml:"simulation"`
	NVD        NVD        `yaml:"nvd"`
}

// Default returns the configuration of the original assessment model.
func Default() *Config {
	return &Config{
		Scoring: Scoring{
			BaseScore:  100,
			ScoreFloor: 0.001,
			Weights: Weights{
				CVE:              0.4,
				Centrality:       0.2,
				Connectedness:    0.2,
				SwitchDependency: 0.2,
				Criticality:      0.3,
				Redundancy:       0.2,
			},
			RedundantFactor:         0.8,
			NonRedundantFactor:      1.0,
			DefaultSwitchDependency: 1.0,
			DefaultFunctionWeight:   1,
			FunctionWeights: map[string]float64{
				"F01": 3, "F02": 3, "F03": 3, "F04": 2, "F05": 3,
				"F06": 3, "F07": 2, "F08": 2, "F09": 2, "F10": 2,
				"F11": 1, "F12": 1, "F13": 1, "F14": 1, "F15": 1,
				"F16": 3, "F18": 3,
			},
			FunctionWorkAreas: map[string]string{
				"F01": "Engineering_Production",
				"F02": "EngineeringProduction",
				"F03": "Engineering_Production",
				"F04": "Test_Engineering",
				"F05": "IT_Cybersecurity",
				"F06": "IT_Cybersecurity",
				"F07": "Engineering_Production",
				"F08": "Test_Engineering",
				"F09": "Test_Engineering",
				"F10": "Company_Management",
				"F11": "Engineering_Production",
				"F12": "Test_Engineering",
				"F13": "Company_Management",
				"F14": "Company_Management",
				"F15": "Company_Management",
				"F16": "IT_Cybersecurity",
				"F18": "IT_Cybersecurity",
			},
			Eigenvector: Eigenvector{
				MaxIterations: 1000,
				Tolerance:     1e-6,
			},
		},
		Simulation: Simulation{
			Workers:     0,
			MinSeverity: 0,
		},
		NVD: NVD{
			BaseURL:      "https://services.nvd.nist.gov/rest/json/cves/2.0",
			APIKeyEnv:    "NVD_API_KEY",
			RequestDelay: 300 * time.Millisecond,
			Timeout:      60 * time.Second,
			CacheTTL:     24 * time.Hour,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", types.ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %w", types.ErrConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the scorer cannot work with.
func (c *Config) Validate() error {
	var errs []error
	s := c.Scoring
	w := s.Weights
	for name, v := range map[string]float64{
		"cve": w.CVE, "centrality": w.Centrality, "connectedness": w.Connectedness,
		"switch_dependency": w.SwitchDependency, "criticality": w.Criticality, "redundancy": w.Redundancy,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("weights.%s must be >= 0, got %g", name, v))
		}
	}
	if s.ScoreFloor <= 0 {
		errs = append(errs, fmt.Errorf("score_floor must be > 0, got %g", s.ScoreFloor))
	}
	if s.BaseScore <= s.ScoreFloor {
		errs = append(errs, fmt.Errorf("base_score must exceed score_floor, got %g", s.BaseScore))
	}
	if s.Eigenvector.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("eigenvector.max_iterations must be >= 1, got %d", s.Eigenvector.MaxIterations))
	}
	if s.Eigenvector.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("eigenvector.tolerance must be > 0, got %g", s.Eigenvector.Tolerance))
	}
	for fn, v := range s.FunctionWeights {
		if v < 0 {
			errs = append(errs, fmt.Errorf("function_weights.%s must be >= 0, got %g", fn, v))
		}
	}
	if c.Simulation.Workers < 0 {
		errs = append(errs, fmt.Errorf("simulation.workers must be >= 0, got %d", c.Simulation.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// ValidateWeightMatrix enforces the [0, 2.0] bound on risk-factor weights.
func ValidateWeightMatrix(m types.WeightMatrix) error {
	var errs []error
	for factor, levels := range m {
		for level, w := range levels {
			if w < 0 || w > types.MaxRiskWeight {
				errs = append(errs, fmt.Errorf("%s/%s: weight %g outside [0, %g]", factor, level, w, types.MaxRiskWeight))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
