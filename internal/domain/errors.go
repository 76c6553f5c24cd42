package domain

import "errors"

// Sentinel errors for feed operations
var (
	// ErrNetwork indicates a transport or HTTP failure
	ErrNetwork = errors.New("network request failed")

	// ErrDecode indicates a malformed catalog response or asset
	ErrDecode = errors.New("decode failed")

	// ErrInvalidConfiguration indicates a URI could not be built from config.
	// Unreachable with valid IDs; treat as a programming error.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
