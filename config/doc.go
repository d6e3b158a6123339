// Package config loads the ridenav service configuration.
//
// Configuration is read from config.yml after an optional .env file has been
// loaded into the environment. ${VAR} and ${VAR:-default} references in the
// YAML are expanded before parsing, and the result is validated using struct
// tags.
package config
