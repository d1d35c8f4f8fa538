package domain

import "errors"

// Request and configuration errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration is fatal to the component that returns it
	ErrConfiguration   = errors.New("configuration error")
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrValidation covers dimension and count mismatches and empty
	// provider input. Nothing has been mutated when it is returned.
	ErrValidation = errors.New("validation error")
)

// Ingest and retrieval errors
var (
	// ErrInsufficientContent means too little text was extracted to index,
	// usually a scanned or image-only PDF.
	ErrInsufficientContent = errors.New("insufficient content")
	ErrEmptyChunking       = errors.New("no fragments produced")

	ErrPersistence      = errors.New("persistence error")
	ErrExternalProvider = errors.New("external provider error")
	ErrIngestInProgress = errors.New("ingest already in progress")
)

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// IsPermanent reports whether retrying the same bytes can never succeed
func IsPermanent(err error) bool {
	for _, target := range []error{ErrInsufficientContent, ErrEmptyChunking, ErrValidation, ErrInvalidInput} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
