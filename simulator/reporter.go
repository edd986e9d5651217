package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kilianp07/rescue/core/model"
)

// Reporter tells the engine a driver moved the mission to a new phase.
type Reporter interface {
	Advance(ctx context.Context, alertID, driverID string, kind model.VehicleKind, to model.AlertStatus) error
}

// LogReporter only logs phase changes. It is used without an API URL.
type LogReporter struct{}

// Advance implements Reporter.
func (LogReporter) Advance(_ context.Context, alertID, driverID string, _ model.VehicleKind, to model.AlertStatus) error {
	log.Printf("%s: %s -> %s", driverID, alertID, to)
	return nil
}

// HTTPReporter posts transitions to the engine API as the driver.
type HTTPReporter struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPReporter returns a reporter for the API at baseURL.
func NewHTTPReporter(baseURL string) *HTTPReporter {
	return &HTTPReporter{BaseURL: baseURL, Client: &http.Client{Timeout: 5 * time.Second}}
}

// Advance implements Reporter.
func (r *HTTPReporter) Advance(ctx context.Context, alertID, driverID string, kind model.VehicleKind, to model.AlertStatus) error {
	body, err := json.Marshal(map[string]model.AlertStatus{"status": to})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/alerts/%s/transition", r.BaseURL, alertID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", driverID)
	req.Header.Set("X-Actor-Role", driverRole(kind))
	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transition %s to %s: status %d", alertID, to, resp.StatusCode)
	}
	return nil
}

func driverRole(kind model.VehicleKind) string {
	if kind == model.VehicleAmbulance {
		return "ambulance_driver"
	}
	return "fire_driver"
}
