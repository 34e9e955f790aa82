package backup

import "testing"

func TestCompression_Valid(t *testing.T) {
	tests := []struct {
		c     Compression
		valid bool
	}{
		{CompressionNone, true},
		{CompressionGzip, true},
		{CompressionZip, true},
		{"bzip2", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			if got := tt.c.Valid(); got != tt.valid {
				t.Errorf("Compression(%q).Valid() = %v, want %v", tt.c, got, tt.valid)
			}
		})
	}
}

func TestCompressionOf(t *testing.T) {
	tests := []struct {
		name string
		want Compression
		ok   bool
	}{
		{"hobbyshelf-20260101T000000Z-abc.json", CompressionNone, true},
		{"hobbyshelf-20260101T000000Z-abc.json.gz", CompressionGzip, true},
		{"HOBBYSHELF.ZIP", CompressionZip, true},
		{".safety-20260101T000000Z.db", "", false},
		{"notes.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := compressionOf(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("compressionOf(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.ok)
			}
			if ok && got.Ext() == "" {
				t.Errorf("Ext() empty for %q", got)
			}
		})
	}
}
