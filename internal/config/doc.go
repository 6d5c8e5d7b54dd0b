// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Every section is optional; LoadWithDefaults fills the gaps, and the database
// section is only required when the recorder is enabled.
package config
