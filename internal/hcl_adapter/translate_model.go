// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/mosaicflow/internal/config"
	"github.com/vk/mosaicflow/internal/ctxlog"
)

// translate converts the merged HCL blocks into the agnostic model,
// applying defaults for every omitted optional attribute.
func (l *Loader) translate(ctx context.Context, root *fileRoot) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	switch {
	case len(root.Mosaics) == 0:
		return nil, fmt.Errorf("a mosaic block is required")
	case len(root.Mosaics) > 1:
		return nil, fmt.Errorf("exactly one mosaic block is allowed, found %d", len(root.Mosaics))
	case len(root.Montage) > 1:
		return nil, fmt.Errorf("at most one montage block is allowed, found %d", len(root.Montage))
	case len(root.Pegasus) > 1:
		return nil, fmt.Errorf("at most one pegasus block is allowed, found %d", len(root.Pegasus))
	case len(root.Publish) > 1:
		return nil, fmt.Errorf("at most one publish block is allowed, found %d", len(root.Publish))
	}

	m := root.Mosaics[0]
	model := &config.Model{
		Mosaic: &config.Mosaic{
			Name:         m.Name,
			Location:     m.Location,
			Size:         m.Size,
			Survey:       m.Survey,
			Band:         m.Band,
			ShrinkFactor: valueOr(m.Shrink, config.DefaultShrinkFactor),
			Strict:       valueOr(m.Strict, true),
			DataDir:      valueOr(m.DataDir, config.DefaultDataDir),
		},
		Montage: &config.Montage{
			BinDir:  config.DefaultMontageBin,
			Prepare: true,
		},
		Pegasus: &config.Pegasus{
			BinDir:       config.DefaultPegasusBin,
			Site:         config.DefaultSite,
			OutputSite:   config.DefaultOutputSite,
			ArchiveSite:  config.DefaultArchiveSite,
			LocalSite:    config.DefaultLocalSite,
			Cleanup:      config.DefaultCleanup,
			Submit:       true,
			PollInterval: config.DefaultPollInterval,
			Properties:   map[string]string{},
		},
		Transformations: make(map[string]*config.Transformation),
	}
	logger.Debug("Translating mosaic block.", "name", m.Name, "location", m.Location, "survey", m.Survey, "band", m.Band)

	if len(root.Montage) == 1 {
		mb := root.Montage[0]
		model.Montage.BinDir = valueOr(mb.BinDir, model.Montage.BinDir)
		model.Montage.Prepare = valueOr(mb.Prepare, model.Montage.Prepare)
	}

	if len(root.Pegasus) == 1 {
		pb := root.Pegasus[0]
		p := model.Pegasus
		p.BinDir = valueOr(pb.BinDir, p.BinDir)
		p.Site = valueOr(pb.Site, p.Site)
		p.OutputSite = valueOr(pb.OutputSite, p.OutputSite)
		p.ArchiveSite = valueOr(pb.ArchiveSite, p.ArchiveSite)
		p.LocalSite = valueOr(pb.LocalSite, p.LocalSite)
		p.Cleanup = valueOr(pb.Cleanup, p.Cleanup)
		p.Submit = valueOr(pb.Submit, p.Submit)
		if pb.Poll != nil {
			d, err := time.ParseDuration(*pb.Poll)
			if err != nil {
				return nil, fmt.Errorf("pegasus: invalid poll interval %q: %w", *pb.Poll, err)
			}
			p.PollInterval = d
		}
		for k, v := range pb.Properties {
			p.Properties[k] = v
		}
	}

	if len(root.Publish) == 1 {
		pb := root.Publish[0]
		model.Publish = &config.Publish{
			Bucket:    pb.Bucket,
			Prefix:    valueOr(pb.Prefix, m.Name),
			SourceDir: valueOr(pb.SourceDir, config.DefaultPublishDir),
		}
	}

	for _, t := range root.Transformations {
		if _, dup := model.Transformations[t.Name]; dup {
			return nil, fmt.Errorf("transformation %q is defined more than once", t.Name)
		}
		model.Transformations[t.Name] = &config.Transformation{
			Name:     t.Name,
			Path:     valueOr(t.Path, ""),
			Profiles: t.Profiles,
		}
	}

	return model, nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
