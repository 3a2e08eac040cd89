package constants

import "errors"

// Configuration errors.
var (
	ErrNoTokenConfigured   = errors.New("no access token configured, use 'docean auth init' or set DOCEAN_TOKEN")
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrTokenPromptNoTTY    = errors.New("stdin is not a terminal, pass the token with --token")
)

// Argument errors.
var (
	ErrInvalidDropletID = errors.New("droplet ID must be a positive integer")
	ErrDomainRequired   = errors.New("domain name is required")
)
