// Package geo projects directory records onto map markers and fits a map
// viewport around them.
package geo

import (
	"math"
	"strconv"
	"strings"

	"agrimarket/internal/directory/media"
	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	pstrings "agrimarket/pkg/platform/strings"
)

// ParseCoordinate parses a textual coordinate. Absent, blank, non-numeric
// and non-finite values are rejected. Range is not checked.
func ParseCoordinate(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Project returns one marker per record whose coordinates both parse, in
// record order. Records without a position are skipped silently.
func Project(records []models.Record, kind schema.Kind, mediaBase string) []models.Marker {
	out := make([]models.Marker, 0, len(records))
	for _, rec := range records {
		lat, ok := ParseCoordinate(rec.Latitude)
		if !ok {
			continue
		}
		lng, ok := ParseCoordinate(rec.Longitude)
		if !ok {
			continue
		}
		out = append(out, models.Marker{
			ID:           rec.ID,
			Kind:         rec.Kind,
			Label:        label(rec),
			Position:     models.Position{lat, lng},
			Tags:         pstrings.DedupeFold(rec.Strings(kind.TagField)),
			Verified:     rec.Verified,
			Availability: availability(rec, kind.AvailabilityField),
			ImageURL:     media.ResolveURL(mediaBase, rec.Image),
		})
	}
	return out
}

func label(rec models.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	return rec.ID
}

func availability(rec models.Record, field string) string {
	if field == "" {
		return ""
	}
	switch v := rec.Attributes[field].(type) {
	case string:
		return strings.TrimSpace(v)
	case bool:
		if v {
			return "Available"
		}
		return "Unavailable"
	default:
		return ""
	}
}
