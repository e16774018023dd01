package model

import "errors"

var (
	// ErrInvalidQuery is returned when a manuscript fails validation
	ErrInvalidQuery = errors.New("invalid manuscript query")

	// ErrUpstreamUnavailable means the bibliographic graph could not be reached
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNoSignal means the similarity lookup found no comparable works
	ErrNoSignal = errors.New("no comparable works found")

	// ErrQuotaExceeded means the user's daily explanation quota is spent
	ErrQuotaExceeded = errors.New("daily explanation quota exceeded")

	// ErrGenerationFailed means the generative service errored or timed out
	ErrGenerationFailed = errors.New("explanation generation failed")
)
