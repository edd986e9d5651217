package dispatch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/pkg/export"
)

// LogQuerier reads mission log records.
type LogQuerier interface {
	Logs(ctx context.Context, q missionlog.Query) ([]missionlog.Record, error)
}

// NewLogHandler returns an HTTP handler exposing mission logs via GET /api/logs.
// format=csv switches the body to CSV.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewLogHandler(logs LogQuerier, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		v := r.URL.Query()
		q := missionlog.Query{
			AlertID:   v.Get("alert_id"),
			VehicleID: v.Get("vehicle_id"),
			SignalID:  v.Get("signal_id"),
		}
		if s := v.Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := v.Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if st := v.Get("type"); st != "" {
			t, ok := typeFromString(st)
			if !ok {
				http.Error(w, "unknown event type", http.StatusBadRequest)
				return
			}
			q.Type = t
		}
		if s := v.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		records, err := logs.Logs(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if v.Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			if err := export.WriteCSV(w, records); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func typeFromString(s string) (events.Type, bool) {
	switch t := events.Type(s); t {
	case events.TypeAlertCreated, events.TypeAlertAssigned, events.TypeAlertTransitioned,
		events.TypeHospitalAttached, events.TypeSignalChanged:
		return t, true
	default:
		return "", false
	}
}
