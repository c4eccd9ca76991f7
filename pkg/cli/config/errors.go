package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrMissingKeycloak = goerr.New("keycloak configuration is required")
	ErrMissingBackend  = goerr.New("claims API URL is required")
)
