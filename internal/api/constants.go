package api

// API limits and constants.
const (
	// MaxUploadSize is the maximum allowed size for snapshot uploads (256 MB).
	MaxUploadSize = 256 << 20
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
)
