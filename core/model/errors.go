package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for a lifecycle move between non-adjacent phases.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnauthorized is returned when the actor may not perform the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyBusy is returned when a reservation loses against another one.
	ErrAlreadyBusy = errors.New("vehicle already busy")
	// ErrNotBusy is returned when releasing a vehicle that holds no alert.
	ErrNotBusy = errors.New("vehicle not busy")
	// ErrNoVehicleAvailable is returned when every candidate was exhausted.
	ErrNoVehicleAvailable = errors.New("no vehicle available")
	// ErrInvalidPhase is returned for a hospital attachment outside pickup/transport.
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("not found")
	// ErrOverridden is returned when the automatic controller writes to an overridden signal.
	ErrOverridden = errors.New("signal overridden")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrInvalidKind is returned for an unknown alert or vehicle kind. It matches
// ErrInvalidInput.
var ErrInvalidKind = fmt.Errorf("invalid kind: %w", ErrInvalidInput)
