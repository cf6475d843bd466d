package domain

import "errors"

var (
	// ErrProviderUnavailable covers network, auth and service failures at
	// the analysis provider.
	ErrProviderUnavailable = errors.New("analysis provider unavailable")
	// ErrMalformedResponse means a required field was missing or failed
	// schema validation in a provider response.
	ErrMalformedResponse = errors.New("malformed provider response")

	ErrSessionNotFound = errors.New("session not found")
)
