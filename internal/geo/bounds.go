// Package geo validates that merged coordinates plausibly belong to the
// directory's service area. Sources occasionally geocode a business to a
// same-named street in another state; those points are dropped rather
// than published.
package geo

import (
	"github.com/twpayne/go-geom"
)

// Bounds is a lat/lng bounding box.
type Bounds struct {
	box *geom.Bounds
}

// ServiceArea returns the bounding box for the Okanogan County service
// area, padded well past the Tonasket town limits so rural routes and
// highway addresses stay in.
func ServiceArea() *Bounds {
	return NewBounds(48.2, -120.2, 49.0, -118.9)
}

// NewBounds builds a bounding box from min/max latitude and longitude.
func NewBounds(minLat, minLng, maxLat, maxLng float64) *Bounds {
	b := geom.NewBounds(geom.XY)
	// go-geom stores X=longitude, Y=latitude.
	b.Set(minLng, minLat, maxLng, maxLat)
	return &Bounds{box: b}
}

// Contains reports whether the point lies inside the bounds.
func (b *Bounds) Contains(lat, lng float64) bool {
	return b.box.OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}
