package montage

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/vk/mosaicflow/internal/catalog"
	"github.com/vk/mosaicflow/internal/config"
)

// TransformationCatalog registers every Montage tool the workflow uses as
// an installed executable under binDir on site. Overrides may replace a
// tool's path or attach planner profiles to it; an override for a tool the
// workflow does not use is an error.
func TransformationCatalog(binDir, site string, overrides map[string]*config.Transformation) (*catalog.TransformationCatalog, error) {
	for name := range overrides {
		if !slices.Contains(Transformations, name) {
			return nil, fmt.Errorf("transformation %q is not used by the mosaic workflow", name)
		}
	}

	tc := catalog.NewTransformationCatalog()
	for _, name := range Transformations {
		path := filepath.Join(binDir, name)
		o := overrides[name]
		if o != nil && o.Path != "" {
			path = o.Path
		}
		if err := tc.Add(name, site, path, catalog.Installed); err != nil {
			return nil, err
		}
		if o == nil {
			continue
		}
		for ns, keys := range o.Profiles {
			for k, v := range keys {
				if err := tc.AddProfile(name, ns, k, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return tc, nil
}
