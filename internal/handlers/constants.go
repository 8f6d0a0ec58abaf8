package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgInvalidAuditID     = "Invalid audit ID"
	ErrMsgAuditNotFound      = "Audit not found"
)

// API path constants
const (
	AuthAPIBasePath = "/api/v1/auth"
)
