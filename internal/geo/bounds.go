package geo

import (
	"math"

	"agrimarket/internal/directory/models"
)

// Bounds is an axis-aligned lat/lng box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// BoundsOf returns the smallest box containing every marker. It reports false
// for an empty marker set.
func BoundsOf(markers []models.Marker) (Bounds, bool) {
	if len(markers) == 0 {
		return Bounds{}, false
	}
	first := markers[0].Position
	b := Bounds{MinLat: first.Lat(), MinLng: first.Lng(), MaxLat: first.Lat(), MaxLng: first.Lng()}
	for _, m := range markers[1:] {
		b.MinLat = math.Min(b.MinLat, m.Position.Lat())
		b.MinLng = math.Min(b.MinLng, m.Position.Lng())
		b.MaxLat = math.Max(b.MaxLat, m.Position.Lat())
		b.MaxLng = math.Max(b.MaxLng, m.Position.Lng())
	}
	return b, true
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p models.Position) bool {
	return p.Lat() >= b.MinLat && p.Lat() <= b.MaxLat &&
		p.Lng() >= b.MinLng && p.Lng() <= b.MaxLng
}

// Pad grows the box by ratio of its span on every side.
func (b Bounds) Pad(ratio float64) Bounds {
	dLat := (b.MaxLat - b.MinLat) * ratio
	dLng := (b.MaxLng - b.MinLng) * ratio
	return Bounds{
		MinLat: b.MinLat - dLat,
		MinLng: b.MinLng - dLng,
		MaxLat: b.MaxLat + dLat,
		MaxLng: b.MaxLng + dLng,
	}
}

// Center returns the midpoint of the box. Halving first keeps extreme
// finite edges from overflowing.
func (b Bounds) Center() models.Position {
	return models.Position{b.MinLat/2 + b.MaxLat/2, b.MinLng/2 + b.MaxLng/2}
}

// finite reports whether every edge is a finite number.
func (b Bounds) finite() bool {
	for _, v := range [...]float64{b.MinLat, b.MinLng, b.MaxLat, b.MaxLng} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
