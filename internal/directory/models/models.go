// Package models holds the directory types shared by the fetcher, the
// filter/search engine and the geo projector.
package models

// Kind identifies a marketplace discovery collection.
type Kind string

const (
	KindFarmers   Kind = "farmers"
	KindSuppliers Kind = "suppliers"
	KindVets      Kind = "vets"
	KindEvents    Kind = "events"
	KindListings  Kind = "listings"
)

// CategoryAll is the category sentinel that disables category filtering.
const CategoryAll = "all"

// Record is a single marketplace participant or event as returned by the
// external API, after normalization.
type Record struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
	// Profile is the nested profile object exactly as returned, if any.
	Profile map[string]any `json:"profile,omitempty"`
	// Attributes is the flattened lookup view: profile keys overlaid by
	// top-level keys. Search and display read from here.
	Attributes map[string]any `json:"attributes"`
	// Latitude and Longitude keep the raw textual coordinate; nil when the
	// API omitted it or sent null.
	Latitude  *string `json:"latitude,omitempty"`
	Longitude *string `json:"longitude,omitempty"`
	Image     string  `json:"image,omitempty"`
}

// String returns the attribute as a string when it is one.
func (r Record) String(field string) (string, bool) {
	v, ok := r.Attributes[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Strings returns the string elements of a list attribute. Non-string
// elements are skipped; a missing or non-list attribute yields nil.
func (r Record) Strings(field string) []string {
	v, ok := r.Attributes[field]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// FilterState is the page's current search/toggle/category selection.
type FilterState struct {
	Search       string `json:"search"`
	VerifiedOnly bool   `json:"verified_only"`
	Category     string `json:"category,omitempty"`
}

// DefaultFilterState is the state a page starts with: no search, verified
// records only, every category.
func DefaultFilterState() FilterState {
	return FilterState{VerifiedOnly: true, Category: CategoryAll}
}

// CategoryActive reports whether the category selector restricts results.
func (f FilterState) CategoryActive() bool {
	return f.Category != "" && f.Category != CategoryAll
}

// Position is a [lat, lng] pair.
type Position [2]float64

// Lat returns the latitude.
func (p Position) Lat() float64 { return p[0] }

// Lng returns the longitude.
func (p Position) Lng() float64 { return p[1] }

// Marker is the map-renderable projection of a Record with valid coordinates.
type Marker struct {
	ID           string   `json:"id"`
	Kind         Kind     `json:"kind"`
	Label        string   `json:"label"`
	Position     Position `json:"position"`
	Tags         []string `json:"tags,omitempty"`
	Verified     bool     `json:"verified"`
	Availability string   `json:"availability,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}
