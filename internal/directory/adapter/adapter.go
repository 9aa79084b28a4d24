// Package adapter maps the external API's loosely shaped records onto
// models.Record. Field-name variants are resolved here and nowhere else.
package adapter

import (
	"strconv"
	"strings"

	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
)

var (
	idKeys       = []string{"id", "_id"}
	profileKeys  = []string{"profile", "farmerProfile", "supplierProfile", "vetProfile"}
	verifiedKeys = []string{"isVerified", "is_verified"}
	latKeys      = []string{"latitude", "lat"}
	lngKeys      = []string{"longitude", "lng"}
)

// Normalize converts one raw API item. It returns false when the item has no
// usable identifier.
func Normalize(kind schema.Kind, raw map[string]any) (models.Record, bool) {
	id, ok := identifier(raw)
	if !ok {
		return models.Record{}, false
	}

	profile := findProfile(raw)
	attrs := make(map[string]any, len(raw)+len(profile))
	for k, v := range profile {
		attrs[k] = v
	}
	for k, v := range raw {
		attrs[k] = v
	}

	rec := models.Record{
		ID:         id,
		Kind:       kind.Kind,
		Verified:   verified(raw) || verified(profile),
		Profile:    profile,
		Attributes: attrs,
		Latitude:   coordinate(raw, profile, latKeys),
		Longitude:  coordinate(raw, profile, lngKeys),
	}
	rec.Name = firstString(attrs, kind.LabelFields)
	if kind.ImageField != "" {
		rec.Image, _ = rec.String(kind.ImageField)
	}
	return rec, true
}

// NormalizeAll converts a list, dropping items that are not objects or have
// no identifier. The result is never nil.
func NormalizeAll(kind schema.Kind, items []any) []models.Record {
	out := make([]models.Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if rec, ok := Normalize(kind, obj); ok {
			out = append(out, rec)
		}
	}
	return out
}

func identifier(raw map[string]any) (string, bool) {
	for _, key := range idKeys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

func findProfile(raw map[string]any) map[string]any {
	for _, key := range profileKeys {
		if p, ok := raw[key].(map[string]any); ok {
			return p
		}
	}
	return nil
}

func verified(m map[string]any) bool {
	for _, key := range verifiedKeys {
		if b, ok := m[key].(bool); ok && b {
			return true
		}
	}
	return false
}

func coordinate(raw, profile map[string]any, keys []string) *string {
	for _, m := range []map[string]any{raw, profile} {
		for _, key := range keys {
			switch v := m[key].(type) {
			case string:
				return &v
			case float64:
				s := strconv.FormatFloat(v, 'f', -1, 64)
				return &s
			}
		}
	}
	return nil
}

func firstString(attrs map[string]any, fields []string) string {
	for _, f := range fields {
		if s, ok := attrs[f].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
