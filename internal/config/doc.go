// Package config defines the format-agnostic description of a mosaic run:
// where on the sky, which survey and band, where the Montage binaries live,
// how to reach the planner and where to publish results. Concrete loaders,
// such as the HCL one, translate their own syntax into Model.
package config
