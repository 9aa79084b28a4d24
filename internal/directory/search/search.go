// Package search filters directory records by free text, verification and
// category. It is pure: inputs are never mutated and order is preserved.
package search

import (
	"strings"

	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	pstrings "agrimarket/pkg/platform/strings"
)

// Filter returns the records of kind that satisfy state, in input order.
// The result is always a new, non-nil slice.
func Filter(records []models.Record, kind schema.Kind, state models.FilterState) []models.Record {
	term := normalizeTerm(state.Search)
	category := kind.HasCategory() && state.CategoryActive()

	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if state.VerifiedOnly && !rec.Verified {
			continue
		}
		if category && !inCategory(rec, kind.CategoryField, state.Category) {
			continue
		}
		if !matchesFolded(rec, kind, term) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Matches reports whether rec matches the free-text term.
func Matches(rec models.Record, kind schema.Kind, term string) bool {
	return matchesFolded(rec, kind, normalizeTerm(term))
}

// Categories lists the distinct category values present in records, in
// first-seen order. Values are kept verbatim since category matching is
// exact. Kinds without a category field yield nil.
func Categories(records []models.Record, kind schema.Kind) []string {
	if !kind.HasCategory() {
		return nil
	}
	seen := make(map[string]struct{})
	values := []string{}
	for _, rec := range records {
		v, ok := rec.String(kind.CategoryField)
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}
	return values
}

func normalizeTerm(term string) string {
	return pstrings.Fold(strings.TrimSpace(term))
}

// matchesFolded expects an already folded term.
func matchesFolded(rec models.Record, kind schema.Kind, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range kind.SearchFields {
		if v, ok := rec.String(field); ok && strings.Contains(pstrings.Fold(v), term) {
			return true
		}
	}
	for _, field := range kind.ListSearchFields {
		for _, v := range rec.Strings(field) {
			if strings.Contains(pstrings.Fold(v), term) {
				return true
			}
		}
	}
	return false
}

func inCategory(rec models.Record, field, category string) bool {
	v, ok := rec.String(field)
	return ok && v == category
}
