// Package export writes mission log records for offline review.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/kilianp07/rescue/core/missionlog"
)

var csvHeader = []string{
	"timestamp", "type", "alert_id", "vehicle_id", "driver_id",
	"requester_id", "signal_id", "status", "actor_id", "message",
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, recs []missionlog.Record) error {
	if recs == nil {
		recs = []missionlog.Record{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(recs)
}

// WriteCSV writes the records to w in CSV format with a header row.
func WriteCSV(w io.Writer, recs []missionlog.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		rec := []string{
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			string(r.Type),
			r.AlertID,
			r.VehicleID,
			r.DriverID,
			r.RequesterID,
			r.SignalID,
			r.Status,
			r.ActorID,
			r.Message,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
