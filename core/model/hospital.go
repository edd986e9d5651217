package model

// Hospital is reference data used to pick an ambulance destination.
// EmergencyCapacity is informational; nothing reserves or decrements it.
type Hospital struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Location          Location `json:"location"`
	Address           string   `json:"address"`
	Specialties       []string `json:"specialties,omitempty"`
	EmergencyCapacity int      `json:"emergency_capacity"`
}

// Clone returns a copy that does not share the specialties slice.
func (h Hospital) Clone() Hospital {
	if h.Specialties != nil {
		h.Specialties = append([]string(nil), h.Specialties...)
	}
	return h
}
