// Package httpx holds the request and response helpers shared by the API
// handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kilianp07/rescue/core/model"
)

// Actor headers set by the gateway in front of the API.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Actor reads the caller identity. A missing role means public.
func Actor(r *http.Request) (model.Actor, error) {
	a := model.Actor{ID: r.Header.Get(HeaderActorID), Role: model.RolePublic}
	if role := r.Header.Get(HeaderActorRole); role != "" {
		parsed, err := model.ParseRole(role)
		if err != nil {
			return a, fmt.Errorf("%v: %w", err, model.ErrInvalidInput)
		}
		a.Role = parsed
	}
	return a, nil
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, model.ErrInvalidInput)
	}
	return nil
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Status maps an engine error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrInvalidPhase),
		errors.Is(err, model.ErrOverridden),
		errors.Is(err, model.ErrAlreadyBusy),
		errors.Is(err, model.ErrNotBusy):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoVehicleAvailable):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error": "..."} with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, Status(err), map[string]string{"error": err.Error()})
}

// RequireToken rejects requests without "Bearer <token>" when token is set.
func RequireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
