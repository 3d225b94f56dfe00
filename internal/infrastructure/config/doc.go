// Package config handles loading and validating the Scheiber bridge
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SCHEIBER_* environment variables
//   - Validation of required fields and the device/slot list
//   - Default value handling
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
