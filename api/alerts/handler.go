// Package alerts exposes alert submission and mission progress over HTTP.
package alerts

import (
	"context"
	"errors"
	"net/http"

	"github.com/kilianp07/rescue/app"
	"github.com/kilianp07/rescue/core/dispatch"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/internal/httpx"
)

// Service is the engine surface used by the handler.
type Service interface {
	SubmitAlert(ctx context.Context, requester model.Actor, kind model.AlertKind, loc model.Location, description string) (app.Submission, error)
	GetAlert(ctx context.Context, id string) (model.EmergencyAlert, error)
	AlertsByRequester(ctx context.Context, requesterID string) ([]model.EmergencyAlert, error)
	Alerts(ctx context.Context, status model.AlertStatus) ([]model.EmergencyAlert, error)
	AdvanceMission(ctx context.Context, actor model.Actor, alertID string, target model.AlertStatus) (model.EmergencyAlert, error)
	AttachHospital(ctx context.Context, actor model.Actor, alertID, hospitalID string) (model.EmergencyAlert, error)
	Cancel(ctx context.Context, actor model.Actor, alertID string) (model.EmergencyAlert, error)
	Dispatch(ctx context.Context, actor model.Actor, alertID string) (dispatch.Assignment, error)
}

type submitRequest struct {
	Kind        model.AlertKind `json:"kind"`
	Location    model.Location  `json:"location"`
	Description string          `json:"description"`
}

type transitionRequest struct {
	Status model.AlertStatus `json:"status"`
}

type hospitalRequest struct {
	HospitalID string `json:"hospital_id"`
}

// NewHandler serves /api/alerts and its sub-resources.
func NewHandler(svc Service) http.Handler {
	h := &handler{svc: svc}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/alerts", h.submit)
	mux.HandleFunc("GET /api/alerts", h.list)
	mux.HandleFunc("GET /api/alerts/{id}", h.get)
	mux.HandleFunc("POST /api/alerts/{id}/transition", h.transition)
	mux.HandleFunc("POST /api/alerts/{id}/hospital", h.hospital)
	mux.HandleFunc("POST /api/alerts/{id}/cancel", h.cancel)
	mux.HandleFunc("POST /api/alerts/{id}/dispatch", h.dispatch)
	return mux
}

type handler struct {
	svc Service
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.svc.SubmitAlert(r.Context(), actor, req.Kind, req.Location, req.Description)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Assignment == nil {
		status = http.StatusAccepted
	}
	httpx.WriteJSON(w, status, res)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		out []model.EmergencyAlert
		err error
	)
	if req := r.URL.Query().Get("requester_id"); req != "" {
		out, err = h.svc.AlertsByRequester(r.Context(), req)
	} else {
		out, err = h.svc.Alerts(r.Context(), model.AlertStatus(r.URL.Query().Get("status")))
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if out == nil {
		out = []model.EmergencyAlert{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAlert(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req transitionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	a, err := h.svc.AdvanceMission(r.Context(), actor, r.PathValue("id"), req.Status)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) hospital(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req hospitalRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	a, err := h.svc.AttachHospital(r.Context(), actor, r.PathValue("id"), req.HospitalID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	a, err := h.svc.Cancel(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) dispatch(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	id := r.PathValue("id")
	asg, err := h.svc.Dispatch(r.Context(), actor, id)
	if errors.Is(err, model.ErrNoVehicleAvailable) {
		a, gerr := h.svc.GetAlert(r.Context(), id)
		if gerr != nil {
			httpx.WriteError(w, gerr)
			return
		}
		httpx.WriteJSON(w, http.StatusAccepted, a)
		return
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, asg)
}
