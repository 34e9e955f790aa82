package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{1, 1},
		{100, 100},
		{101, MaxListLimit},
		{10_000, MaxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}

func TestArchiveFilter_Valid(t *testing.T) {
	for _, f := range []ArchiveFilter{"", ArchiveExclude, ArchiveOnly, ArchiveAll} {
		assert.True(t, f.Valid(), "%q", f)
	}
	assert.False(t, ArchiveFilter("deleted").Valid())
}

func TestProperties_KeysSorted(t *testing.T) {
	p := Properties{"servings": 2, "difficulty": "easy", "minutes": 40}
	assert.Equal(t, []string{"difficulty", "minutes", "servings"}, p.Keys())
	assert.Empty(t, Properties(nil).Keys())
}

func TestMediaTypeFromMIME(t *testing.T) {
	assert.Equal(t, MediaImage, MediaTypeFromMIME("image/webp"))
	assert.Equal(t, MediaVideo, MediaTypeFromMIME("video/mp4"))
	assert.Equal(t, MediaAudio, MediaTypeFromMIME("audio/flac"))
	assert.Equal(t, MediaFile, MediaTypeFromMIME("application/pdf"))
	assert.Equal(t, MediaFile, MediaTypeFromMIME(""))
}
