// Package jitter separates coincident points for display. Records sharing a
// coordinate (at fixed precision) are arranged on concentric rings around
// the group's first member so each stays independently visible. Visual
// coordinates are display-only; true coordinates are never modified.
package jitter

import (
	"fmt"
	"math"

	"github.com/lojamap/lojamap/internal/model"
)

const (
	// groupDecimals is the rounding precision for collision grouping;
	// 5 decimal places is about 1.1 m at the equator.
	groupDecimals = 5

	baseRadiusMeters = 22.0
	ringStepMeters   = 18.0
	maxRadiusMeters  = 110.0
	pointsPerRing    = 10

	metersPerDegree = 111320.0
)

// Apply annotates every resolved record with a visual coordinate. It must
// run only after the whole batch has finished resolving, since it depends
// on knowing all coincident points. For a fixed input ordering the
// assignment is fully deterministic.
func Apply(records []*model.Record) {
	groups := make(map[string][]*model.Record)
	var order []string

	for _, rec := range records {
		if !rec.Resolved() {
			continue
		}
		key := fmt.Sprintf("%.*f,%.*f", groupDecimals, rec.Point.Lat, groupDecimals, rec.Point.Lon)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			p := *members[0].Point
			members[0].Visual = &p
			continue
		}
		spread(members)
	}
}

// spread places colliding members on rings around the first member's true
// coordinate.
func spread(members []*model.Record) {
	anchor := *members[0].Point
	n := len(members)

	for i, rec := range members {
		ring := i / pointsPerRing
		idx := i % pointsPerRing
		countInRing := n - ring*pointsPerRing
		if countInRing > pointsPerRing {
			countInRing = pointsPerRing
		}

		radius := baseRadiusMeters + float64(ring)*ringStepMeters
		if radius > maxRadiusMeters {
			radius = maxRadiusMeters
		}

		angle := 2 * math.Pi * float64(idx) / float64(countInRing)
		dLat, dLon := metersToDegrees(anchor.Lat, radius)
		rec.Visual = &model.Point{
			Lat: anchor.Lat + dLat*math.Sin(angle),
			Lon: anchor.Lon + dLon*math.Cos(angle),
		}
	}
}

// metersToDegrees converts a ground distance to degree offsets at the given
// latitude, using the small-angle approximation with longitude compressed
// by cos(lat).
func metersToDegrees(lat, meters float64) (dLat, dLon float64) {
	dLat = meters / metersPerDegree
	dLon = meters / (metersPerDegree * math.Cos(lat*math.Pi/180))
	return dLat, dLon
}
