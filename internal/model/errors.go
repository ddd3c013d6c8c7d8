package model

import "errors"

// Common errors used across the client
var (
	// Transport / pipeline errors
	ErrTransport       = errors.New("transport error")
	ErrAuthRejected    = errors.New("authentication rejected")
	ErrInvalidResponse = errors.New("invalid response format")

	// Session errors
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrValidationFailed           = errors.New("validation failed")
	ErrVerificationDispatchFailed = errors.New("failed to send verification code")
	ErrNotAuthenticated           = errors.New("not authenticated")

	// Match errors
	ErrMatchNotFound          = errors.New("match not found")
	ErrReconciliationRequired = errors.New("move sequence gap, reconciliation required")
	ErrMatchmakingNotActive   = errors.New("matchmaking is not active")

	// Realtime channel errors
	ErrChannelUnavailable = errors.New("realtime channel is not connected")
)
