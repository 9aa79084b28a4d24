package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  name  ", "country  ", "  region"},
			expected: []string{"name", "country", "region"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"name", "country", "name", "region", "country"},
			expected: []string{"name", "country", "region"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"name", "", "  ", "country"},
			expected: []string{"name", "country"},
		},
		{
			name:     "preserves case",
			input:    []string{"Name", "name", "NAME"},
			expected: []string{"Name", "name", "NAME"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DedupeAndTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "keeps first spelling",
			input:    []string{"Maize", "maize", "MAIZE"},
			expected: []string{"Maize"},
		},
		{
			name:     "trims, folds, and dedupes",
			input:    []string{"  Beans ", "coffee", "beans", "Coffee", ""},
			expected: []string{"Beans", "coffee"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFold(tt.input))
		})
	}
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		substr   string
		expected bool
	}{
		{"empty term matches", "Kiambu", "", true},
		{"case-insensitive", "Green Valley Farm", "VALLEY", true},
		{"accented upper case", "ÉLEVAGE Nakuru", "élevage", true},
		{"composed vs decomposed", "Ma\u00efze", "mai\u0308ze", true},
		{"no match", "Coffee", "maize", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsFold(tt.s, tt.substr))
		})
	}
}
