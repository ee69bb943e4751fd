package storage

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// pathSegmentRegex matches characters that are not safe for path segments.
var pathSegmentRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizePathSegment removes potentially dangerous characters from path
// segments. This prevents path traversal attacks and ensures safe S3 keys.
func sanitizePathSegment(segment string) string {
	segment = strings.Trim(segment, " /\\")
	segment = strings.ReplaceAll(segment, "..", "")
	segment = pathSegmentRegex.ReplaceAllString(segment, "_")
	return url.PathEscape(segment)
}

// ObjectKey builds the storage key for a file:
// {orgID}/{fileID}{ext}, where the extension comes from the declared content
// type, falling back to the original filename, then ".bin". The organization
// is always the first path segment so tenant data never interleaves.
func ObjectKey(orgID, fileID, originalName, contentType string) string {
	ext := ExtFromMIME(contentType)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(originalName))
	}
	if ext == "" {
		ext = ".bin"
	}
	return sanitizePathSegment(orgID) + "/" + sanitizePathSegment(fileID) + ext
}

// ThumbnailKey builds the storage key for a file's thumbnail artifact.
func ThumbnailKey(orgID, fileID string) string {
	return sanitizePathSegment(orgID) + "/thumbnails/" + sanitizePathSegment(fileID) + ".jpg"
}
