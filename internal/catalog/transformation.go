package catalog

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
)

// TransformationType tells the planner whether the executable is already
// present on the site or must be staged there.
type TransformationType string

const (
	Installed TransformationType = "installed"
	Stageable TransformationType = "stageable"
)

// TransformationSite is the executable location of a transformation on one
// execution site.
type TransformationSite struct {
	Name string             `yaml:"name"`
	PFN  string             `yaml:"pfn"`
	Type TransformationType `yaml:"type"`
}

// Transformation is a logical executable. Profiles are grouped by
// namespace (pegasus, condor, env, ...).
type Transformation struct {
	Name     string                       `yaml:"name"`
	Sites    []TransformationSite         `yaml:"sites"`
	Profiles map[string]map[string]string `yaml:"profiles,omitempty"`
}

// TransformationCatalog maps logical job names to executables.
type TransformationCatalog struct {
	entries map[string]*Transformation
}

// NewTransformationCatalog returns an empty catalog.
func NewTransformationCatalog() *TransformationCatalog {
	return &TransformationCatalog{entries: make(map[string]*Transformation)}
}

// Add registers the executable for name on site. Adding a second site for
// the same name appends to it; re-adding the same site replaces its entry.
func (tc *TransformationCatalog) Add(name, site, pfn string, typ TransformationType) error {
	if name == "" || site == "" || pfn == "" {
		return fmt.Errorf("transformation %q: name, site and pfn are required", name)
	}
	if typ == Installed && !filepath.IsAbs(pfn) {
		return fmt.Errorf("transformation %s: installed executable path must be absolute, got %q", name, pfn)
	}

	t, ok := tc.entries[name]
	if !ok {
		t = &Transformation{Name: name}
		tc.entries[name] = t
	}
	for i, s := range t.Sites {
		if s.Name == site {
			t.Sites[i] = TransformationSite{Name: site, PFN: pfn, Type: typ}
			return nil
		}
	}
	t.Sites = append(t.Sites, TransformationSite{Name: site, PFN: pfn, Type: typ})
	return nil
}

// AddProfile attaches a profile key to an already registered transformation.
func (tc *TransformationCatalog) AddProfile(name, namespace, key, value string) error {
	t, ok := tc.entries[name]
	if !ok {
		return fmt.Errorf("transformation %s is not registered", name)
	}
	if t.Profiles == nil {
		t.Profiles = make(map[string]map[string]string)
	}
	if t.Profiles[namespace] == nil {
		t.Profiles[namespace] = make(map[string]string)
	}
	t.Profiles[namespace][key] = value
	return nil
}

// Has reports whether name is registered.
func (tc *TransformationCatalog) Has(name string) bool {
	_, ok := tc.entries[name]
	return ok
}

// Get returns the registered transformation.
func (tc *TransformationCatalog) Get(name string) (Transformation, bool) {
	t, ok := tc.entries[name]
	if !ok {
		return Transformation{}, false
	}
	return *t, true
}

// Transformations returns every entry sorted by name.
func (tc *TransformationCatalog) Transformations() []Transformation {
	names := make([]string, 0, len(tc.entries))
	for n := range tc.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Transformation, 0, len(names))
	for _, n := range names {
		out = append(out, *tc.entries[n])
	}
	return out
}

type transformationDoc struct {
	Pegasus         string           `yaml:"pegasus"`
	Transformations []Transformation `yaml:"transformations"`
}

// WriteYAML serializes the catalog.
func (tc *TransformationCatalog) WriteYAML(w io.Writer) error {
	return encode(w, transformationDoc{Pegasus: FormatVersion, Transformations: tc.Transformations()})
}

// WriteFile writes the catalog to path.
func (tc *TransformationCatalog) WriteFile(path string) error {
	return writeFile(path, tc.WriteYAML)
}
