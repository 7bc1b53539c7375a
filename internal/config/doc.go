// Package config provides configuration types and loading for the
// dispatcher.
//
// This package defines the complete configuration model, YAML loading
// with environment variable substitution, validation, and file
// watching for hot-reload support.
//
// # Features
//
//   - YAML configuration file loading merged over defaults
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Configuration validation with detailed error reporting
//   - File watching with debounce for configuration hot-reload
//   - Worker pool, router cache, upload policy, and cache backend config
//
// # Configuration Loading
//
// Load and validate configuration from a YAML file:
//
//	cfg, err := config.LoadAndValidate("velox.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
// Watch for configuration changes:
//
//	watcher, err := config.NewWatcher("velox.yaml", func(cfg *config.Config) {
//	    // apply the runtime-safe subset
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := watcher.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer watcher.Stop()
//
// Only log level and upload policies are applied at runtime. Changes to
// the server, router, pool, cache, or admin sections are logged as
// requiring a restart.
package config
