// Package hcl_adapter loads mosaic run descriptions written in HCL and
// translates them into config.Model. Expressions are evaluated against an
// `env` map holding the process environment.
package hcl_adapter
