// Package config handles loading and validating netfield-connect configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The API key and broker password should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - mqtt.tls.insecure_skip_verify is for local development brokers only
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID)
package config
