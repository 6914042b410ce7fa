package handlers

const (
	ErrInvalidRequest      = "Invalid request payload"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrNotFound            = "Not found"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"

	// upper bound for JSON request bodies
	maxBodyBytes = 1 << 16
)
