package main

import (
	"github.com/pthm-cable/slime/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// Species parameters are applied to every configured species.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Trail
			{Name: "evaporation", Path: "simulation.evaporation", Min: 0.0005, Max: 0.02, Default: 0.002},
			{Name: "diffusion", Path: "simulation.diffusion", Min: 0.05, Max: 0.9, Default: 0.35},
			// Agents
			{Name: "speed", Path: "species[].speed", Min: 0.0003, Max: 0.004, Default: 0.0012},
			{Name: "turn_speed", Path: "species[].turn_speed", Min: 0.05, Max: 0.8, Default: 0.25},
			{Name: "view_distance", Path: "species[].view_distance", Min: 0.005, Max: 0.06, Default: 0.02},
			{Name: "field_of_view", Path: "species[].field_of_view", Min: 0.1, Max: 1.4, Default: 0.5236},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config and refreshes its
// derived values. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	clamped := pv.Clamp(values)

	cfg.Simulation.Evaporation = clamped[0]
	cfg.Simulation.Diffusion = clamped[1]
	for i := range cfg.Species {
		sp := &cfg.Species[i]
		sp.Speed = clamped[2]
		sp.TurnSpeed = clamped[3]
		sp.ViewDistance = clamped[4]
		sp.FieldOfView = clamped[5]
	}
	return cfg.Refresh()
}

// ExtractFromConfig extracts current parameter values from a Config.
// Species parameters come from the first species.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := pv.DefaultVector()
	v[0] = cfg.Simulation.Evaporation
	v[1] = cfg.Simulation.Diffusion
	if len(cfg.Species) > 0 {
		sp := cfg.Species[0]
		v[2], v[3], v[4], v[5] = sp.Speed, sp.TurnSpeed, sp.ViewDistance, sp.FieldOfView
	}
	return v
}
