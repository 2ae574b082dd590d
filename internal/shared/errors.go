package shared

import "fmt"

var (
	// Configuration errors (checked once at startup, never per-request)
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Login flow errors, user-visible as "please restart login"
	ErrUnknownLogin = fmt.Errorf("unknown login attempt")
	ErrLoginUsed    = fmt.Errorf("login attempt already completed")
	ErrLoginExpired = fmt.Errorf("login attempt expired")

	// Upstream API errors
	ErrUpstreamRejected     = fmt.Errorf("upstream rejected request")
	ErrUpstreamUnauthorized = fmt.Errorf("upstream credential invalid or expired")
	ErrRateLimited          = fmt.Errorf("upstream rate limit exceeded")
	ErrNetwork              = fmt.Errorf("network failure reaching upstream")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
