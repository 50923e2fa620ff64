package config

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by loaders when the run description omits a value.
const (
	DefaultShrinkFactor = 2
	DefaultSite         = "condorpool"
	DefaultOutputSite   = "local"
	DefaultArchiveSite  = "ipac"
	DefaultLocalSite    = "local"
	DefaultCleanup      = "inplace"
	DefaultPollInterval = 30 * time.Second
	DefaultDataDir      = "data"
	DefaultMontageBin   = "/opt/Montage/bin"
	DefaultPegasusBin   = "/usr/bin"
	DefaultPublishDir   = "output"
)

// Model is the complete description of one mosaic run.
type Model struct {
	Mosaic          *Mosaic
	Montage         *Montage
	Pegasus         *Pegasus
	Publish         *Publish // nil when results stay on the output site
	Transformations map[string]*Transformation
}

// Mosaic describes the sky region and the survey to mosaic.
type Mosaic struct {
	Name         string
	Location     string  // object name or coordinates understood by mHdr
	Size         float64 // degrees
	Survey       string
	Band         string
	ShrinkFactor int
	// Strict makes assembly fail when the raw, projected and corrected
	// image tables disagree, instead of only logging the mismatch.
	Strict  bool
	DataDir string
}

// Montage locates the toolkit binaries.
type Montage struct {
	BinDir  string
	Prepare bool
}

// Pegasus holds planner and site settings.
type Pegasus struct {
	BinDir       string
	Site         string
	OutputSite   string
	ArchiveSite  string
	LocalSite    string
	Cleanup      string
	Submit       bool
	PollInterval time.Duration
	Properties   map[string]string
}

// Publish names the bucket that receives the final products.
type Publish struct {
	Bucket    string
	Prefix    string
	SourceDir string // where the output site leaves the products
}

// Transformation overrides the executable path or adds planner profiles for
// one Montage tool.
type Transformation struct {
	Name     string
	Path     string
	Profiles map[string]map[string]string
}

// Validate checks the fields every run needs.
func (m *Model) Validate() error {
	var errs []error
	if m.Mosaic == nil {
		return errors.New("a mosaic block is required")
	}
	if m.Mosaic.Location == "" {
		errs = append(errs, fmt.Errorf("mosaic %q: location is required", m.Mosaic.Name))
	}
	if m.Mosaic.Size <= 0 {
		errs = append(errs, fmt.Errorf("mosaic %q: size must be positive, got %g", m.Mosaic.Name, m.Mosaic.Size))
	}
	if m.Mosaic.Survey == "" || m.Mosaic.Band == "" {
		errs = append(errs, fmt.Errorf("mosaic %q: survey and band are required", m.Mosaic.Name))
	}
	if m.Mosaic.ShrinkFactor < 1 {
		errs = append(errs, fmt.Errorf("mosaic %q: shrink factor must be at least 1", m.Mosaic.Name))
	}
	if m.Pegasus != nil && m.Pegasus.PollInterval <= 0 {
		errs = append(errs, errors.New("pegasus: poll interval must be positive"))
	}
	if m.Publish != nil && m.Publish.Bucket == "" {
		errs = append(errs, errors.New("publish: bucket is required"))
	}
	return errors.Join(errs...)
}
