package vehicles

import (
	"context"
	"net/http"

	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/internal/httpx"
)

// Fleet is the engine surface used by the vehicle handlers.
type Fleet interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
	UpdateLocation(ctx context.Context, actor model.Actor, vehicleID string, loc model.Location) (model.Vehicle, error)
	SetDuty(ctx context.Context, actor model.Actor, vehicleID string, online bool) (model.Vehicle, error)
}

// NewStatusHandler returns an HTTP handler exposing the fleet via GET /api/vehicles.
// The kind, status and driver_id query parameters filter the list.
func NewStatusHandler(fleet Fleet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		kind := model.VehicleKind(r.URL.Query().Get("kind"))
		status := model.VehicleStatus(r.URL.Query().Get("status"))
		driver := r.URL.Query().Get("driver_id")
		all, err := fleet.Vehicles(r.Context())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]model.Vehicle, 0, len(all))
		for _, v := range all {
			if (kind == "" || v.Kind == kind) && (status == "" || v.Status == status) && (driver == "" || v.DriverID == driver) {
				out = append(out, v)
			}
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	})
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// NewLocationHandler accepts PUT /api/vehicles/{id}/location from the driver.
func NewLocationHandler(fleet Fleet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		actor, err := httpx.Actor(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		var req locationRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if req.Lat == nil || req.Lng == nil {
			http.Error(w, "lat and lng are required", http.StatusBadRequest)
			return
		}
		v, err := fleet.UpdateLocation(r.Context(), actor, r.PathValue("id"), model.Location{Lat: *req.Lat, Lng: *req.Lng})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, v)
	})
}

type dutyRequest struct {
	Online *bool `json:"online"`
}

// NewDutyHandler accepts PUT /api/vehicles/{id}/duty.
func NewDutyHandler(fleet Fleet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		actor, err := httpx.Actor(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		var req dutyRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if req.Online == nil {
			http.Error(w, "online is required", http.StatusBadRequest)
			return
		}
		v, err := fleet.SetDuty(r.Context(), actor, r.PathValue("id"), *req.Online)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, v)
	})
}
