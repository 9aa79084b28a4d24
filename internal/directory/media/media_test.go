package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	const base = "https://api.example.org/"

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"absolute https", "https://cdn.example.org/a.png", "https://cdn.example.org/a.png"},
		{"absolute http upper case", "HTTP://cdn.example.org/a.png", "HTTP://cdn.example.org/a.png"},
		{"protocol relative", "//cdn.example.org/a.png", "//cdn.example.org/a.png"},
		{"data uri", "data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"rooted", "/uploads/a.png", "https://api.example.org/uploads/a.png"},
		{"relative", "uploads/a.png", "https://api.example.org/uploads/a.png"},
		{"windows separators", `uploads\farmers\a.png`, "https://api.example.org/uploads/farmers/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(base, tt.path))
		})
	}
}

func TestResolveURLWithoutBase(t *testing.T) {
	assert.Equal(t, "/uploads/a.png", ResolveURL("", "uploads/a.png"))
}
