package model

import "fmt"

// Role is the closed set of actor roles known to the engine.
type Role int

const (
	RolePublic Role = iota
	RoleAmbulanceDriver
	RoleFireDriver
	RoleAdmin
	// RoleMatcher is the dispatch engine acting on its own behalf. It cannot be
	// parsed from external input.
	RoleMatcher
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RolePublic:
		return "public"
	case RoleAmbulanceDriver:
		return "ambulance_driver"
	case RoleFireDriver:
		return "fire_driver"
	case RoleAdmin:
		return "admin"
	case RoleMatcher:
		return "matcher"
	default:
		return "unknown"
	}
}

// ParseRole converts an external role name. The matcher role is rejected.
func ParseRole(s string) (Role, error) {
	switch s {
	case "public":
		return RolePublic, nil
	case "ambulance_driver":
		return RoleAmbulanceDriver, nil
	case "fire_driver":
		return RoleFireDriver, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// DrivesKind reports whether the role is a driver of the given vehicle kind.
func (r Role) DrivesKind(k VehicleKind) bool {
	switch r {
	case RoleAmbulanceDriver:
		return k == VehicleAmbulance
	case RoleFireDriver:
		return k == VehicleFireEngine
	case RolePublic, RoleAdmin, RoleMatcher:
		return false
	default:
		return false
	}
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Role Role
}

// MatcherActor is the identity used by the dispatch engine.
var MatcherActor = Actor{ID: "dispatch-matcher", Role: RoleMatcher}
