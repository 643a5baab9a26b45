package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNetwork            = fmt.Errorf("network error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSnackNotFound      = fmt.Errorf("snack not found")

	// Local state errors
	ErrCacheWrite = fmt.Errorf("cache write failed")
	ErrCacheRead  = fmt.Errorf("cache read failed")

	// Synchronization errors
	ErrToggleInFlight = fmt.Errorf("toggle already in flight")
	ErrSuperseded     = fmt.Errorf("request superseded by a newer one")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
