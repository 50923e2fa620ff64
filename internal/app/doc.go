// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle (prepare, assemble,
// serialize, submit, publish), decoupled from any specific entrypoint.
package app
