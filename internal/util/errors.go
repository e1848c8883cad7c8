package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	ErrEmbedding         = errors.New("embedding failed")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrSessionNotFound   = errors.New("session not found")

	ErrAuthentication   = errors.New("no usable API key")
	ErrRateLimited      = errors.New("provider rate limited")
	ErrUpstream         = errors.New("upstream provider error")
	ErrModelUnavailable = errors.New("local model unavailable")
)
