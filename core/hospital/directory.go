// Package hospital is the read-only hospital directory used to pick an
// ambulance destination.
package hospital

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/kilianp07/rescue/core/geo"
	"github.com/kilianp07/rescue/core/model"
)

// Match is a hospital with its distance to the query point.
type Match struct {
	Hospital   model.Hospital `json:"hospital"`
	DistanceKm float64        `json:"distance_km"`
}

// Directory indexes hospitals on the unit sphere for nearest lookups.
type Directory struct {
	byID map[string]model.Hospital
	ids  []string
	tree *kdtree.Tree
}

// New builds a Directory. Ids must be unique and locations valid.
func New(hospitals []model.Hospital) (*Directory, error) {
	d := &Directory{byID: make(map[string]model.Hospital, len(hospitals))}
	pts := make(places, 0, len(hospitals))
	for _, h := range hospitals {
		if h.ID == "" {
			return nil, fmt.Errorf("hospital %q: empty id: %w", h.Name, model.ErrInvalidInput)
		}
		if _, dup := d.byID[h.ID]; dup {
			return nil, fmt.Errorf("hospital %s: duplicate id: %w", h.ID, model.ErrInvalidInput)
		}
		if err := h.Location.Validate(); err != nil {
			return nil, fmt.Errorf("hospital %s: %v: %w", h.ID, err, model.ErrInvalidInput)
		}
		if h.EmergencyCapacity < 0 {
			return nil, fmt.Errorf("hospital %s: negative capacity: %w", h.ID, model.ErrInvalidInput)
		}
		h = h.Clone()
		d.byID[h.ID] = h
		d.ids = append(d.ids, h.ID)
		pts = append(pts, newPlace(h.ID, h.Location))
	}
	sort.Strings(d.ids)
	if len(pts) > 0 {
		d.tree = kdtree.New(pts, false)
	}
	return d, nil
}

// Len returns the number of hospitals.
func (d *Directory) Len() int { return len(d.ids) }

// Get returns a hospital by id.
func (d *Directory) Get(id string) (model.Hospital, error) {
	h, ok := d.byID[id]
	if !ok {
		return model.Hospital{}, fmt.Errorf("hospital %s: %w", id, model.ErrNotFound)
	}
	return h.Clone(), nil
}

// List returns every hospital ordered by id.
func (d *Directory) List() []model.Hospital {
	out := make([]model.Hospital, 0, len(d.ids))
	for _, id := range d.ids {
		out = append(out, d.byID[id].Clone())
	}
	return out
}

// Nearest returns up to k hospitals closest to loc, nearest first.
func (d *Directory) Nearest(loc model.Location, k int) []Match {
	if d.tree == nil || k <= 0 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	d.tree.NearestSet(keep, newPlace("", loc))
	out := make([]Match, 0, k)
	for _, c := range keep.Heap {
		p, ok := c.Comparable.(place)
		if !ok {
			continue
		}
		out = append(out, Match{Hospital: d.byID[p.id].Clone(), DistanceKm: geo.ChordToKm(c.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Hospital.ID < out[j].Hospital.ID
	})
	return out
}

// Closest returns the single nearest hospital.
func (d *Directory) Closest(loc model.Location) (Match, error) {
	m := d.Nearest(loc, 1)
	if len(m) == 0 {
		return Match{}, fmt.Errorf("nearest hospital: %w", model.ErrNotFound)
	}
	return m[0], nil
}

type place struct {
	id string
	p  kdtree.Point
}

func newPlace(id string, loc model.Location) place {
	c := geo.Cartesian(geo.FromLocation(loc))
	return place{id: id, p: kdtree.Point{c[0], c[1], c[2]}}
}

func (p place) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.p[d] - c.(place).p[d]
}

func (p place) Dims() int { return 3 }

func (p place) Distance(c kdtree.Comparable) float64 {
	return p.p.Distance(c.(place).p)
}

type places []place

func (p places) Index(i int) kdtree.Comparable { return p[i] }
func (p places) Len() int                      { return len(p) }
func (p places) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot sorts along d and returns the median index.
func (p places) Pivot(d kdtree.Dim) int {
	sort.Slice(p, func(i, j int) bool { return p[i].p[d] < p[j].p[d] })
	return len(p) / 2
}
