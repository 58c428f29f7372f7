package registry

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Category classifies a drawing API name.
type Category string

const (
	Shapes      Category = "shapes"
	Transforms  Category = "transforms"
	Colors      Category = "colors"
	Math        Category = "math"
	Environment Category = "environment"
	Controllers Category = "controllers"
)

// Categories lists every table category in declaration order.
var Categories = []Category{Shapes, Transforms, Colors, Math, Environment, Controllers}

// Priority is the fixed resolution order for free-standing names that may be
// declared in several categories. The earliest match wins.
var Priority = []Category{Controllers, Math, Environment, Colors}

// Builder roles for multi-call shape construction.
const (
	RoleBegin = "begin"
	RoleAdd   = "add"
	RoleEnd   = "end"
)

// Entry describes one registered name.
type Entry struct {
	Name         string   `yaml:"-" toml:"-" json:"name"`
	Category     Category `yaml:"-" toml:"-" json:"category"`
	Canonical    string   `yaml:"canonical,omitempty" toml:"canonical,omitempty" json:"canonical"`
	BaseType     string   `yaml:"base,omitempty" toml:"base,omitempty" json:"base,omitempty"`
	Role         string   `yaml:"role,omitempty" toml:"role,omitempty" json:"role,omitempty"`
	AlphaArities []int    `yaml:"alpha_arities,omitempty" toml:"alpha_arities,omitempty" json:"alpha_arities,omitempty"`
	Value        *float64 `yaml:"value,omitempty" toml:"value,omitempty" json:"value,omitempty"`
}

// HasAlpha reports whether a call with argc arguments carries an alpha channel.
func (e Entry) HasAlpha(argc int) bool {
	for _, n := range e.AlphaArities {
		if n == argc {
			return true
		}
	}
	return false
}

type table struct {
	Functions  map[string]Entry `yaml:"functions" toml:"functions"`
	Symbols    map[string]Entry `yaml:"symbols" toml:"symbols"`
	Namespaces map[string]Entry `yaml:"namespaces" toml:"namespaces"`
}

type document struct {
	Shapes      table            `yaml:"shapes" toml:"shapes"`
	Builders    map[string]Entry `yaml:"builders" toml:"builders"`
	Transforms  table            `yaml:"transforms" toml:"transforms"`
	Colors      table            `yaml:"colors" toml:"colors"`
	Math        table            `yaml:"math" toml:"math"`
	Environment table            `yaml:"environment" toml:"environment"`
	Controllers table            `yaml:"controllers" toml:"controllers"`
}

// Registry is the immutable classification table. Build it once and share it;
// none of its methods mutate state.
type Registry struct {
	tables    map[Category]table
	builders  map[string]Entry
	baseTypes []string
	bases     map[string]bool
}

//go:embed registry.yaml
var defaultTable []byte

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return Parse(defaultTable, "yaml")
})

// Default returns the built-in drawing API registry.
func Default() (*Registry, error) {
	return loadDefault()
}

// Load reads a registry table from a .yaml, .yml or .toml file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	reg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry %s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a registry from table data in the given format ("yaml" or "toml").
func Parse(data []byte, format string) (*Registry, error) {
	var doc document
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid yaml registry: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid toml registry: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported registry format: %q", format)
	}
	return build(doc)
}

func build(doc document) (*Registry, error) {
	r := &Registry{
		tables: map[Category]table{
			Shapes:      normalize(Shapes, doc.Shapes),
			Transforms:  normalize(Transforms, doc.Transforms),
			Colors:      normalize(Colors, doc.Colors),
			Math:        normalize(Math, doc.Math),
			Environment: normalize(Environment, doc.Environment),
			Controllers: normalize(Controllers, doc.Controllers),
		},
		builders: make(map[string]Entry, len(doc.Builders)),
		bases:    make(map[string]bool),
	}

	for name, e := range r.tables[Shapes].Functions {
		if e.BaseType == "" {
			e.BaseType = name
			r.tables[Shapes].Functions[name] = e
		}
		r.bases[e.BaseType] = true
	}

	for name, e := range doc.Builders {
		switch e.Role {
		case RoleBegin, RoleAdd, RoleEnd:
		default:
			return nil, fmt.Errorf("builder %q has invalid role %q", name, e.Role)
		}
		if e.BaseType == "" {
			return nil, fmt.Errorf("builder %q has no base type", name)
		}
		e.Name = name
		e.Category = Shapes
		if e.Canonical == "" {
			e.Canonical = name
		}
		r.builders[name] = e
		r.bases[e.BaseType] = true
	}

	for base := range r.bases {
		r.baseTypes = append(r.baseTypes, base)
	}
	sort.Strings(r.baseTypes)
	return r, nil
}

func normalize(cat Category, t table) table {
	fill := func(m map[string]Entry) map[string]Entry {
		out := make(map[string]Entry, len(m))
		for name, e := range m {
			e.Name = name
			e.Category = cat
			if e.Canonical == "" {
				e.Canonical = name
			}
			out[name] = e
		}
		return out
	}
	return table{
		Functions:  fill(t.Functions),
		Symbols:    fill(t.Symbols),
		Namespaces: fill(t.Namespaces),
	}
}

// BaseTypes returns the sorted set of base render-types.
func (r *Registry) BaseTypes() []string {
	out := make([]string, len(r.baseTypes))
	copy(out, r.baseTypes)
	return out
}

// IsBaseType reports whether name is a known base render-type.
func (r *Registry) IsBaseType(name string) bool {
	return r.bases[name]
}

// Shape resolves a render primitive call name, either exactly or as an alias
// spelled with its base type.
func (r *Registry) Shape(name string) (Entry, bool) {
	if e, ok := r.tables[Shapes].Functions[name]; ok {
		return e, true
	}
	if r.bases[name] {
		return Entry{Name: name, Category: Shapes, Canonical: name, BaseType: name}, true
	}
	return Entry{}, false
}

// Builder resolves a shape-builder call (beginShape, vertex, endShape, ...).
func (r *Registry) Builder(name string) (Entry, bool) {
	e, ok := r.builders[name]
	return e, ok
}

// IsRenderPrimitive reports whether a call to name draws output.
func (r *Registry) IsRenderPrimitive(name string) bool {
	if _, ok := r.Shape(name); ok {
		return true
	}
	_, ok := r.builders[name]
	return ok
}

// Function looks up a callable name within one category.
func (r *Registry) Function(cat Category, name string) (Entry, bool) {
	e, ok := r.tables[cat].Functions[name]
	return e, ok
}

// Symbol looks up a constant or variable name within one category.
func (r *Registry) Symbol(cat Category, name string) (Entry, bool) {
	e, ok := r.tables[cat].Symbols[name]
	return e, ok
}

// Namespace looks up a dotted namespace path such as "p5.Vector".
func (r *Registry) Namespace(cat Category, path string) (Entry, bool) {
	e, ok := r.tables[cat].Namespaces[path]
	return e, ok
}

// Functions returns every registered callable, render primitives and builders
// included, sorted by name.
func (r *Registry) Functions() []Entry {
	var out []Entry
	for _, cat := range Categories {
		for _, e := range r.tables[cat].Functions {
			out = append(out, e)
		}
	}
	for _, e := range r.builders {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Symbols returns every registered constant and variable sorted by name.
func (r *Registry) Symbols() []Entry {
	var out []Entry
	for _, cat := range Categories {
		for _, e := range r.tables[cat].Symbols {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Namespaces returns every registered namespace path sorted by path.
func (r *Registry) Namespaces() []Entry {
	var out []Entry
	for _, cat := range Categories {
		for _, e := range r.tables[cat].Namespaces {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Resolve returns the first category in Priority declaring name as a function.
func (r *Registry) Resolve(name string) (Entry, bool) {
	for _, cat := range Priority {
		if e, ok := r.Function(cat, name); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// ResolveCall resolves a called name: render primitive (exact or base-type
// alias), then builder, then transform, then the Priority order.
func (r *Registry) ResolveCall(name string) (Entry, bool) {
	if e, ok := r.Shape(name); ok {
		return e, true
	}
	if e, ok := r.Builder(name); ok {
		return e, true
	}
	if e, ok := r.Function(Transforms, name); ok {
		return e, true
	}
	return r.Resolve(name)
}

// ResolveSymbol returns the first category in Priority declaring name as a symbol.
func (r *Registry) ResolveSymbol(name string) (Entry, bool) {
	for _, cat := range Priority {
		if e, ok := r.Symbol(cat, name); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// ResolveNamespace returns the category declaring the namespace path, trying
// the Priority order first.
func (r *Registry) ResolveNamespace(path string) (Entry, bool) {
	for _, cat := range Priority {
		if e, ok := r.Namespace(cat, path); ok {
			return e, true
		}
	}
	for _, cat := range []Category{Shapes, Transforms} {
		if e, ok := r.Namespace(cat, path); ok {
			return e, true
		}
	}
	return Entry{}, false
}
