package main

import (
	"github.com/kilianp07/rescue/core/geo"
	"github.com/kilianp07/rescue/core/model"
)

const kmPerDegree = 111.195

// Step moves from toward to by at most km and reports whether to was reached.
func Step(from, to model.Location, km float64) (model.Location, bool) {
	d := geo.Between(from, to)
	if d <= km || d == 0 {
		return to, true
	}
	f := km / d
	return model.Location{
		Lat: from.Lat + (to.Lat-from.Lat)*f,
		Lng: from.Lng + (to.Lng-from.Lng)*f,
	}, false
}
