// Package config handles loading and validating ForestOS Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (FORESTOS_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, broker passwords, InfluxDB token) should be
//     set via environment variables or a local .env file
//   - The config file should have restricted permissions (0600)
//
// The loaded *Config is read-only after Load returns. Components receive the
// section they need by value at construction time.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
