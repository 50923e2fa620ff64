package pegasus

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/magiconair/properties"
)

// Properties returns the planner properties for a run whose catalogs live
// at the given paths, with overrides applied on top.
func Properties(replicas, transformations string, overrides map[string]string) (map[string]string, error) {
	rc, err := filepath.Abs(replicas)
	if err != nil {
		return nil, err
	}
	tc, err := filepath.Abs(transformations)
	if err != nil {
		return nil, err
	}
	props := map[string]string{
		"pegasus.catalog.replica":             "YAML",
		"pegasus.catalog.replica.file":        rc,
		"pegasus.catalog.transformation":      "YAML",
		"pegasus.catalog.transformation.file": tc,
		"pegasus.data.configuration":          "condorio",
		"pegasus.monitord.encoding":           "json",
	}
	for k, v := range overrides {
		props[k] = v
	}
	return props, nil
}

// WriteProperties writes props as a Java properties file, sorted by key so
// that identical runs produce identical files.
func WriteProperties(path string, props map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		if _, _, err := p.Set(k, props[k]); err != nil {
			return fmt.Errorf("invalid property %s: %w", k, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# Pegasus properties written by mosaicflow")
	if _, err := p.Write(w, properties.UTF8); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
