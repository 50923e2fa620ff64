package catalog

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
)

// PFN is one physical location of a logical file.
type PFN struct {
	Site string `yaml:"site"`
	URL  string `yaml:"pfn"`
}

// Replica lists the physical locations of one logical file.
type Replica struct {
	LFN  string `yaml:"lfn"`
	PFNs []PFN  `yaml:"pfns"`
}

// ReplicaCatalog maps logical file names to physical locations, keeping
// registration order.
type ReplicaCatalog struct {
	entries []*Replica
	index   map[string]*Replica
}

// NewReplicaCatalog returns an empty catalog.
func NewReplicaCatalog() *ReplicaCatalog {
	return &ReplicaCatalog{index: make(map[string]*Replica)}
}

// Add registers a physical location for lfn. Registering the same
// site/location pair twice is a no-op.
func (rc *ReplicaCatalog) Add(lfn, site, location string) error {
	if lfn == "" {
		return fmt.Errorf("replica: empty logical file name")
	}
	if site == "" || location == "" {
		return fmt.Errorf("replica %s: site and location are required", lfn)
	}

	r, ok := rc.index[lfn]
	if !ok {
		r = &Replica{LFN: lfn}
		rc.index[lfn] = r
		rc.entries = append(rc.entries, r)
	}
	for _, p := range r.PFNs {
		if p.Site == site && p.URL == location {
			return nil
		}
	}
	r.PFNs = append(r.PFNs, PFN{Site: site, URL: location})
	return nil
}

// AddLocal registers a file on the local site from a filesystem path,
// turning it into an absolute file:// URL.
func (rc *ReplicaCatalog) AddLocal(lfn, site, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("replica %s: %w", lfn, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return rc.Add(lfn, site, u.String())
}

// Has reports whether lfn has at least one registered location.
func (rc *ReplicaCatalog) Has(lfn string) bool {
	_, ok := rc.index[lfn]
	return ok
}

// Lookup returns the locations registered for lfn.
func (rc *ReplicaCatalog) Lookup(lfn string) ([]PFN, bool) {
	r, ok := rc.index[lfn]
	if !ok {
		return nil, false
	}
	out := make([]PFN, len(r.PFNs))
	copy(out, r.PFNs)
	return out, true
}

// Len returns the number of logical files.
func (rc *ReplicaCatalog) Len() int {
	return len(rc.entries)
}

// Replicas returns every entry in registration order.
func (rc *ReplicaCatalog) Replicas() []Replica {
	out := make([]Replica, 0, len(rc.entries))
	for _, r := range rc.entries {
		cp := Replica{LFN: r.LFN, PFNs: make([]PFN, len(r.PFNs))}
		copy(cp.PFNs, r.PFNs)
		out = append(out, cp)
	}
	return out
}

type replicaDoc struct {
	Pegasus  string    `yaml:"pegasus"`
	Replicas []Replica `yaml:"replicas"`
}

// WriteYAML serializes the catalog.
func (rc *ReplicaCatalog) WriteYAML(w io.Writer) error {
	return encode(w, replicaDoc{Pegasus: FormatVersion, Replicas: rc.Replicas()})
}

// WriteFile writes the catalog to path.
func (rc *ReplicaCatalog) WriteFile(path string) error {
	return writeFile(path, rc.WriteYAML)
}
