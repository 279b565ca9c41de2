// Package config provides configuration management for the graph-builder.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have sensible defaults for development use.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("graph served on %s\n", cfg.GetPrimaryAddr())
package config
