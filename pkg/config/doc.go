// Package config loads the sanctuary configuration file.
//
// # Overview
//
// Configuration is a single YAML document decoded over Default() and checked
// with struct-tag validation. Unknown keys are rejected so typos surface at
// load time instead of silently falling back to defaults.
//
// # Sections
//
//   - sanctuary: registry sizing (isolation_units)
//   - policy: admission policy mode, custom policy paths, file watching
//   - script: scenario runner timeout and step budget
//   - telemetry: logging, tracing, metrics and events
//
// # Usage Example
//
//	cfg, err := config.Load("sanctuary.yaml")
//	if err != nil {
//	    return err
//	}
//	reg := sanctuary.NewRegistry(sanctuary.WithIsolationUnits(cfg.Sanctuary.IsolationUnits))
//
// # Environment
//
// LOG_LEVEL overrides telemetry.logging.level after the file is applied.
package config
