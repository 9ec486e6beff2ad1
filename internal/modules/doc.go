// Package modules contains all self-contained application features.
//
// Each subdirectory is a module that should implement the `module.Module` interface.
// Modules are registered in `internal/server/server.go` and booted by
// RegisterRoutes at startup.
package modules
