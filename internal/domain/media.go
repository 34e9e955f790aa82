package domain

import (
	"strings"
	"time"
)

// MediaType classifies an attachment.
type MediaType string

// Media types.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaFile  MediaType = "file"
)

// MediaTypeFromMIME derives the media type from a MIME type prefix.
func MediaTypeFromMIME(mime string) MediaType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaImage
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo
	case strings.HasPrefix(mime, "audio/"):
		return MediaAudio
	default:
		return MediaFile
	}
}

// Media is metadata about a file attached to an entry. The bytes live in
// external storage; only the stored filename is recorded here.
type Media struct {
	ID               int64          `json:"id"`
	EntryID          int64          `json:"entry_id"`
	Type             MediaType      `json:"type"`
	Filename         string         `json:"filename"`
	OriginalFilename string         `json:"original_filename"`
	MimeType         string         `json:"mime_type"`
	SizeBytes        int64          `json:"size_bytes"`
	Width            *int           `json:"width,omitempty"`
	Height           *int           `json:"height,omitempty"`
	DurationSeconds  *float64       `json:"duration_seconds,omitempty"`
	Metadata         map[string]any `json:"metadata"`
	ThumbnailPath    string         `json:"thumbnail_path,omitempty"`
	Position         int            `json:"position"`
	CreatedAt        time.Time      `json:"created_at"`
}
