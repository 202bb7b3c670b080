// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package state maps vulnerability exposure to operating states and applies
// a state-dependent decay to resilience scores.
package state

import (
	"math"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// PenaltyScale is the fraction of the score an impact multiplier of 1 removes.
const PenaltyScale = 0.2

// DefaultInitialScore is used for assets without a prior resilience score.
const DefaultInitialScore = 100.0

// State is an operating state with its impact multiplier.
type State struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

var (
	Normal      = State{Name: "Normal", Impact: 1.0}
	Recovery    = State{Name: "Recovery", Impact: 0.75}
	Degraded    = State{Name: "Degraded", Impact: 0.5}
	UnderAttack = State{Name: "Under Attack", Impact: 0.2}
	Failure     = State{Name: "Failure", Impact: 0.1}
)

// States lists every state in declaration order.
func States() []State {
	return []State{Normal, Recovery, Degraded, UnderAttack, Failure}
}

// Machine tracks a current state. It starts in Normal.
type Machine struct {
	states  map[string]State
	current State
}

func NewMachine() *Machine {
	m := &Machine{states: make(map[string]State), current: Normal}
	for _, s := range States() {
		m.states[s.Name] = s
	}
	return m
}

// Transition moves to the named state and returns its impact. Unknown names
// leave the machine unchanged.
func (m *Machine) Transition(name string) (float64, bool) {
	s, ok := m.states[name]
	if !ok {
		return 0, false
	}
	m.current = s
	return s.Impact, true
}

func (m *Machine) Current() State { return m.current }

// Classify maps a worst-case severity to a state.
func Classify(severity float64) State {
	switch {
	case severity >= 8.0:
		return UnderAttack
	case severity >= 4.0:
		return Degraded
	default:
		return Normal
	}
}

// Adjust applies the state decay: max(0, initial - 0.2*impact*initial),
// rounded to 5 decimals.
func Adjust(initial float64, s State) float64 {
	v := math.Max(0, initial-PenaltyScale*s.Impact*initial)
	return math.Round(v*1e5) / 1e5
}

// Adjustment is the state outcome for one asset.
type Adjustment struct {
	NodeID        string  `json:"node_id"`
	NodeName      string  `json:"node_name"`
	State         string  `json:"state"`
	WorstSeverity float64 `json:"worst_severity"`
	InitialScore  float64 `json:"initial_score"`
	AdjustedScore float64 `json:"adjusted_score"`
}

// Simulate classifies every asset and decays its score. Severities are
// looked up across the whole asset set, so a vulnerability scored on one
// asset counts on every asset that lists it. Each asset is evaluated from
// a fresh machine.
func Simulate(assets []types.Asset, scores *types.ResilienceResult) []Adjustment {
	severity := make(map[string]float64)
	for i := range assets {
		for id, s := range assets[i].CVEScores {
			severity[id] = s
		}
	}

	out := make([]Adjustment, len(assets))
	for i := range assets {
		a := &assets[i]
		var worst float64
		for _, id := range a.CVEs {
			worst = math.Max(worst, severity[id])
		}

		initial := DefaultInitialScore
		if scores != nil {
			if s, ok := scores.Score(a.ID); ok {
				initial = s
			}
		}

		m := NewMachine()
		m.Transition(Classify(worst).Name)
		out[i] = Adjustment{
			NodeID:        a.ID,
			NodeName:      a.Name,
			State:         m.Current().Name,
			WorstSeverity: worst,
			InitialScore:  initial,
			AdjustedScore: Adjust(initial, m.Current()),
		}
	}
	return out
}
