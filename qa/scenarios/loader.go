// Package scenarios replays YAML dispatch scenarios against an in-memory
// engine.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/core/model"
)

type VehicleDef struct {
	ID       string  `yaml:"id"`
	Kind     string  `yaml:"kind"`
	DriverID string  `yaml:"driver_id"`
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
	Offline  bool    `yaml:"offline"`
}

func (v VehicleDef) Seed() config.VehicleSeed {
	return config.VehicleSeed{ID: v.ID, Kind: v.Kind, DriverID: v.DriverID, Lat: v.Lat, Lng: v.Lng, Offline: v.Offline}
}

// Step is one action. Exactly one field is set.
type Step struct {
	Submit   *SubmitStep  `yaml:"submit,omitempty"`
	Duty     *DutyStep    `yaml:"duty,omitempty"`
	Move     *MoveStep    `yaml:"move,omitempty"`
	Advance  *AdvanceStep `yaml:"advance,omitempty"`
	Cancel   string       `yaml:"cancel,omitempty"`
	Dispatch string       `yaml:"dispatch,omitempty"`
}

type SubmitStep struct {
	Ref       string  `yaml:"ref"`
	Kind      string  `yaml:"kind"`
	Lat       float64 `yaml:"lat"`
	Lng       float64 `yaml:"lng"`
	Requester string  `yaml:"requester"`
}

type DutyStep struct {
	Vehicle string `yaml:"vehicle"`
	Online  bool   `yaml:"online"`
}

type MoveStep struct {
	Vehicle string  `yaml:"vehicle"`
	Lat     float64 `yaml:"lat"`
	Lng     float64 `yaml:"lng"`
}

type AdvanceStep struct {
	Ref string `yaml:"ref"`
	To  string `yaml:"to"`
	// Error names the expected failure: not_found, unauthorized,
	// invalid_transition or invalid_phase.
	Error string `yaml:"error,omitempty"`
}

// Expected lists the end state. An empty assignment means still pending.
type Expected struct {
	Assignments map[string]string `yaml:"assignments"`
	Statuses    map[string]string `yaml:"statuses"`
	Vehicles    map[string]string `yaml:"vehicles"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Vehicles    []VehicleDef `yaml:"vehicles"`
	Steps       []Step       `yaml:"steps"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario without name", path)
	}
	return &sc, nil
}

func parseError(name string) error {
	switch name {
	case "not_found":
		return model.ErrNotFound
	case "unauthorized":
		return model.ErrUnauthorized
	case "invalid_transition":
		return model.ErrInvalidTransition
	case "invalid_phase":
		return model.ErrInvalidPhase
	default:
		return nil
	}
}
