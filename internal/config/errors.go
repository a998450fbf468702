package config

import "errors"

// Configuration validation errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to
// use errors.Is() for programmatic error handling while still
// providing human-readable messages.
var (
	// ErrNoAPIEndpoint is returned when the report submission endpoint
	// is missing. Every other feature is optional; this one is not.
	ErrNoAPIEndpoint = errors.New("no api endpoint configured: set apiEndpoint to the report intake URL")

	// ErrNoStorageMode is returned when the storage mode is empty.
	ErrNoStorageMode = errors.New("no storage mode configured: choose s3-presigned, local-public, or proxy")

	// ErrUnknownStorageMode is returned when the storage mode is not
	// one of the three supported providers.
	ErrUnknownStorageMode = errors.New("unknown storage mode: choose s3-presigned, local-public, or proxy")

	// ErrNoPresignEndpoint is returned when mode s3-presigned has no
	// presign endpoint.
	ErrNoPresignEndpoint = errors.New("s3-presigned storage requires a presign endpoint")

	// ErrNoUploadEndpoint is returned when mode local-public or proxy
	// has no upload endpoint.
	ErrNoUploadEndpoint = errors.New("storage mode requires an upload endpoint")

	// ErrInvalidBufferSize is returned when a diagnostics buffer size
	// is negative. Zero means use the default.
	ErrInvalidBufferSize = errors.New("invalid diagnostics buffer size: must be non-negative")

	// ErrInvalidLimit is returned when an upload limit is negative.
	// Zero means use the default.
	ErrInvalidLimit = errors.New("invalid storage limit: must be non-negative")
)
