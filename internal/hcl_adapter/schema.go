package hcl_adapter

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Mosaics         []*MosaicBlock         `hcl:"mosaic,block"`
	Montage         []*MontageBlock        `hcl:"montage,block"`
	Pegasus         []*PegasusBlock        `hcl:"pegasus,block"`
	Publish         []*PublishBlock        `hcl:"publish,block"`
	Transformations []*TransformationBlock `hcl:"transformation,block"`
}

// MosaicBlock is the `mosaic "<name>" { ... }` block.
type MosaicBlock struct {
	Name     string  `hcl:"name,label"`
	Location string  `hcl:"location"`
	Size     float64 `hcl:"size"`
	Survey   string  `hcl:"survey"`
	Band     string  `hcl:"band"`
	Shrink   *int    `hcl:"shrink,optional"`
	Strict   *bool   `hcl:"strict,optional"`
	DataDir  *string `hcl:"data_dir,optional"`
}

// MontageBlock is the `montage { ... }` block.
type MontageBlock struct {
	BinDir  *string `hcl:"bin_dir,optional"`
	Prepare *bool   `hcl:"prepare,optional"`
}

// PegasusBlock is the `pegasus { ... }` block.
type PegasusBlock struct {
	BinDir      *string           `hcl:"bin_dir,optional"`
	Site        *string           `hcl:"site,optional"`
	OutputSite  *string           `hcl:"output_site,optional"`
	ArchiveSite *string           `hcl:"archive_site,optional"`
	LocalSite   *string           `hcl:"local_site,optional"`
	Cleanup     *string           `hcl:"cleanup,optional"`
	Submit      *bool             `hcl:"submit,optional"`
	Poll        *string           `hcl:"poll,optional"`
	Properties  map[string]string `hcl:"properties,optional"`
}

// PublishBlock is the `publish { ... }` block.
type PublishBlock struct {
	Bucket    string  `hcl:"bucket"`
	Prefix    *string `hcl:"prefix,optional"`
	SourceDir *string `hcl:"source_dir,optional"`
}

// TransformationBlock is the `transformation "<tool>" { ... }` block.
type TransformationBlock struct {
	Name     string                       `hcl:"name,label"`
	Path     *string                      `hcl:"path,optional"`
	Profiles map[string]map[string]string `hcl:"profiles,optional"`
}
