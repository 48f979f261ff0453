package routing

import "errors"

var (
	// ErrDashboardRequired is returned when a route table has no Dashboard backend
	ErrDashboardRequired = errors.New("dashboard backend URL is required")

	// ErrInvalidBackendURL is returned when a backend base URL is not an absolute http(s) URL
	ErrInvalidBackendURL = errors.New("invalid backend URL")
)
