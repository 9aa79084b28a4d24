// Package schema declares the per-kind field table that drives the fetcher,
// the filter/search engine and the geo projector.
package schema

import (
	_ "embed"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agrimarket/internal/directory/models"
	pstrings "agrimarket/pkg/platform/strings"
)

//go:embed kinds.yaml
var defaultKinds []byte

// Kind describes one discovery collection.
type Kind struct {
	Kind              models.Kind `yaml:"kind" json:"kind"`
	Title             string      `yaml:"title" json:"title"`
	Path              string      `yaml:"path" json:"-"`
	LabelFields       []string    `yaml:"label_fields" json:"-"`
	SearchFields      []string    `yaml:"search_fields" json:"search_fields"`
	ListSearchFields  []string    `yaml:"list_search_fields" json:"list_search_fields,omitempty"`
	CategoryField     string      `yaml:"category_field" json:"category_field,omitempty"`
	TagField          string      `yaml:"tag_field" json:"-"`
	AvailabilityField string      `yaml:"availability_field" json:"-"`
	ImageField        string      `yaml:"image_field" json:"-"`
	Gated             bool        `yaml:"gated" json:"gated"`
	Roles             []string    `yaml:"roles" json:"roles,omitempty"`
}

// HasCategory reports whether the kind supports the category selector.
func (k Kind) HasCategory() bool {
	return k.CategoryField != ""
}

// AllowsRole reports whether role may see a gated kind. An empty role list
// admits any authenticated role.
func (k Kind) AllowsRole(role string) bool {
	if len(k.Roles) == 0 {
		return true
	}
	for _, r := range k.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Registry is the ordered set of configured kinds.
type Registry struct {
	kinds []Kind
	index map[models.Kind]int
}

type document struct {
	Kinds []Kind `yaml:"kinds"`
}

// Load parses and validates a kind table.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode kinds: %w", err)
	}
	if len(doc.Kinds) == 0 {
		return nil, fmt.Errorf("decode kinds: no kinds declared")
	}

	reg := &Registry{index: make(map[models.Kind]int, len(doc.Kinds))}
	for _, k := range doc.Kinds {
		k.SearchFields = pstrings.DedupeAndTrim(k.SearchFields)
		k.ListSearchFields = pstrings.DedupeAndTrim(k.ListSearchFields)
		k.LabelFields = pstrings.DedupeAndTrim(k.LabelFields)
		if err := validate(k); err != nil {
			return nil, err
		}
		if _, dup := reg.index[k.Kind]; dup {
			return nil, fmt.Errorf("kind %q declared twice", k.Kind)
		}
		reg.index[k.Kind] = len(reg.kinds)
		reg.kinds = append(reg.kinds, k)
	}
	return reg, nil
}

// LoadFile loads a kind table from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kinds file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded kind table.
func Default() *Registry {
	reg, err := Load(bytes.NewReader(defaultKinds))
	if err != nil {
		panic(fmt.Sprintf("embedded kinds.yaml is invalid: %v", err))
	}
	return reg
}

// Get looks a kind up by name.
func (r *Registry) Get(kind models.Kind) (Kind, bool) {
	i, ok := r.index[kind]
	if !ok {
		return Kind{}, false
	}
	return r.kinds[i], true
}

// All returns the kinds in declaration order.
func (r *Registry) All() []Kind {
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

func validate(k Kind) error {
	switch {
	case k.Kind == "":
		return fmt.Errorf("kind without name")
	case !strings.HasPrefix(k.Path, "/"):
		return fmt.Errorf("kind %q: path must start with /", k.Kind)
	case len(k.SearchFields) == 0 && len(k.ListSearchFields) == 0:
		return fmt.Errorf("kind %q: no search fields", k.Kind)
	case len(k.LabelFields) == 0:
		return fmt.Errorf("kind %q: no label fields", k.Kind)
	}
	return nil
}
