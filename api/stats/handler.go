// Package stats serves the operator overview and the hospital directory.
package stats

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kilianp07/rescue/app"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/internal/httpx"
)

// Reporter is the engine surface used by the handlers.
type Reporter interface {
	Stats(ctx context.Context) (app.Stats, error)
	Hospitals(loc *model.Location, k int) []model.Hospital
}

// NewStatsHandler returns an HTTP handler exposing GET /api/stats.
func NewStatsHandler(rep Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st, err := rep.Stats(r.Context())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, st)
	})
}

// NewHospitalHandler returns an HTTP handler exposing GET /api/hospitals.
// With lat, lng and k it returns the k nearest hospitals.
func NewHospitalHandler(rep Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		var loc *model.Location
		k := 0
		if q.Get("lat") != "" || q.Get("lng") != "" {
			lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
			lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
			if err1 != nil || err2 != nil {
				http.Error(w, "lat and lng must be numbers", http.StatusBadRequest)
				return
			}
			l := model.Location{Lat: lat, Lng: lng}
			if err := l.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			loc = &l
			k = 3
		}
		if s := q.Get("k"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid k", http.StatusBadRequest)
				return
			}
			k = n
		}
		out := rep.Hospitals(loc, k)
		if out == nil {
			out = []model.Hospital{}
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	})
}
