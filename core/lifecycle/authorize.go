package lifecycle

import (
	"fmt"
	"sort"

	"github.com/kilianp07/rescue/core/model"
)

// authorize decides whether actor may move a to target. Only the matcher may
// assign; later phases belong to the assigned driver, with the matcher and
// admins allowed to act on their behalf.
func authorize(actor model.Actor, a model.EmergencyAlert, target model.AlertStatus) error {
	switch actor.Role {
	case model.RoleMatcher:
		return nil
	case model.RoleAdmin:
		if target == model.StatusAssigned {
			return denied(actor, a.ID, target)
		}
		return nil
	case model.RoleAmbulanceDriver, model.RoleFireDriver:
		if target == model.StatusAssigned {
			return denied(actor, a.ID, target)
		}
		vk, _ := a.Kind.VehicleKind()
		if !actor.Role.DrivesKind(vk) || a.AssignedDriverID == "" || a.AssignedDriverID != actor.ID {
			return denied(actor, a.ID, target)
		}
		return nil
	case model.RolePublic:
		return denied(actor, a.ID, target)
	default:
		return denied(actor, a.ID, target)
	}
}

func authorizeCancel(actor model.Actor, a model.EmergencyAlert) error {
	switch actor.Role {
	case model.RoleAdmin, model.RoleMatcher:
		return nil
	case model.RolePublic:
		if actor.ID != "" && actor.ID == a.RequesterID {
			return nil
		}
		return denied(actor, a.ID, model.StatusCancelled)
	case model.RoleAmbulanceDriver, model.RoleFireDriver:
		return denied(actor, a.ID, model.StatusCancelled)
	default:
		return denied(actor, a.ID, model.StatusCancelled)
	}
}

func denied(actor model.Actor, id string, target model.AlertStatus) error {
	return fmt.Errorf("%s %q → %s on %s: %w", actor.Role, actor.ID, target, id, model.ErrUnauthorized)
}

func sortByCreation(list []model.EmergencyAlert) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
