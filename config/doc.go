// Package config provides configuration structures for kernelhub components.
//
// Each component has its own struct with a Default constructor and a Merge
// method. Files loaded from disk are merged over the defaults:
//
//	cfg, err := config.Load("kernelhub.yaml")
//	manager := kernel.New(ctx, cfg.Tracker, kernel.WithTransport(client))
//
// Load accepts JSON or YAML, chosen by file extension (.yaml and .yml are
// YAML; anything else is JSON).
//
// # Merge Semantics
//
//   - Strings: merge if source is non-empty
//   - Integers: merge if source is greater than zero
//   - Durations: merge if source is greater than zero
//   - Pointers: merge if source is non-nil
//   - Nested configs: recursive merge
//
// # Durations
//
// Duration fields accept Go duration strings ("500ms", "2s") in both JSON
// and YAML. Plain JSON numbers are read as nanoseconds.
//
// Configuration only exists during initialization; components copy what
// they need in their constructors.
package config
