package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		orgID        string
		fileID       string
		originalName string
		contentType  string
		want         string
	}{
		{
			name:        "extension from content type",
			orgID:       "org1", fileID: "file1",
			originalName: "quarterly report.pdf",
			contentType:  "application/pdf",
			want:         "org1/file1.pdf",
		},
		{
			name:  "extension from filename when type unknown",
			orgID: "org1", fileID: "file2",
			originalName: "data.parquet",
			contentType:  "application/x-unknown",
			want:         "org1/file2.parquet",
		},
		{
			name:  "bin fallback",
			orgID: "org1", fileID: "file3",
			originalName: "blob",
			contentType:  "application/x-unknown",
			want:         "org1/file3.bin",
		},
		{
			name:  "path traversal stripped from segments",
			orgID: "../../etc", fileID: "passwd/..",
			originalName: "x.txt",
			contentType:  "text/plain",
			want:         "etc/passwd.txt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ObjectKey(tt.orgID, tt.fileID, tt.originalName, tt.contentType))
		})
	}
}

func TestIsImage(t *testing.T) {
	t.Parallel()

	assert.True(t, IsImage("image/png"))
	assert.True(t, IsImage("image/jpeg; charset=binary"))
	assert.True(t, IsImage("IMAGE/GIF"))
	assert.False(t, IsImage("application/pdf"))
	assert.False(t, IsImage(""))
}

func TestMatchesMIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mimeType string
		patterns []string
		want     bool
	}{
		{"exact match", "application/pdf", []string{"application/pdf"}, true},
		{"wildcard subtype", "image/webp", []string{"image/*"}, true},
		{"full wildcard", "video/mp4", []string{"*/*"}, true},
		{"no match", "text/html", []string{"image/*", "application/pdf"}, false},
		{"parameters ignored", "text/plain; charset=utf-8", []string{"text/plain"}, true},
		{"empty patterns", "text/plain", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MatchesMIME(tt.mimeType, tt.patterns))
		})
	}
}

func TestUploadPolicy_ValidateUpload(t *testing.T) {
	t.Parallel()

	policy := UploadPolicy{
		MaxFileSize:  1 << 20,
		AllowedTypes: []string{"application/pdf", "image/*"},
	}

	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		wantCode    string
	}{
		{"valid pdf", "report.pdf", "application/pdf", 1200, ""},
		{"valid image", "photo.png", "image/png", 4096, ""},
		{"missing filename", "", "application/pdf", 10, ErrCodeEmptyName},
		{"zero size", "a.pdf", "application/pdf", 0, ErrCodeEmptyFile},
		{"negative size", "a.pdf", "application/pdf", -1, ErrCodeEmptyFile},
		{"oversize", "a.pdf", "application/pdf", 2 << 20, ErrCodeFileTooLarge},
		{"disallowed type", "a.exe", "application/x-msdownload", 10, ErrCodeInvalidMIME},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := policy.ValidateUpload(tt.filename, tt.contentType, tt.size)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var verr *UploadValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantCode, verr.Code)
		})
	}

	t.Run("permissive policy allows anything well-formed", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, UploadPolicy{}.ValidateUpload("f.bin", "application/octet-stream", 1))
	})
}
