// Package catalog builds the two catalogs the external planner needs next
// to the workflow: the replica catalog (logical file name to physical
// locations) and the transformation catalog (logical job name to executable
// path per execution site). Both are written in the planner's YAML format
// and are otherwise passed through untouched.
package catalog
