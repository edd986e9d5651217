package model

import "time"

// SignalColor is the aspect shown by a traffic signal.
type SignalColor string

const (
	SignalRed    SignalColor = "red"
	SignalYellow SignalColor = "yellow"
	SignalGreen  SignalColor = "green"
)

// Valid reports whether c is a known colour.
func (c SignalColor) Valid() bool {
	switch c {
	case SignalRed, SignalYellow, SignalGreen:
		return true
	default:
		return false
	}
}

// TrafficSignal is a controllable intersection signal.
type TrafficSignal struct {
	ID           string      `json:"id"`
	Label        string      `json:"label,omitempty"`
	Location     Location    `json:"location"`
	Status       SignalColor `json:"status"`
	IsOverridden bool        `json:"is_overridden"`
	LastUpdated  time.Time   `json:"last_updated"`
}
