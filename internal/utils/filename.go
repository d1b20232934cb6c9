package utils

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// ParseFilename extracts the last non-empty path segment of a URL.
// The second return value is false when the URL carries no usable segment.
func ParseFilename(u *url.URL) (string, bool) {
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return SanitizeFilename(segments[i]), true
		}
	}
	return "", false
}

// RefineFilename improves a candidate filename using the origin's response.
// Content-Disposition wins over the candidate; when the result has no
// extension, one is inferred from the magic bytes of the sniffed body head.
func RefineFilename(candidate string, header http.Header, sniff []byte) string {
	if _, name, err := httpheader.ContentDisposition(header); err == nil && name != "" {
		candidate = name
	}
	candidate = SanitizeFilename(candidate)

	if filepath.Ext(candidate) == "" {
		if kind, _ := filetype.Match(sniff); kind != filetype.Unknown && kind.Extension != "" {
			candidate = candidate + "." + kind.Extension
		}
	}
	return candidate
}

// UniqueFilename returns name unchanged when directory/name does not exist
// yet; otherwise the name is prefixed with a fresh uuid and a dash.
func UniqueFilename(directory, name string) string {
	if _, err := os.Stat(filepath.Join(directory, name)); os.IsNotExist(err) {
		return name
	}
	return uuid.New().String() + "-" + name
}

// SanitizeFilename strips path components and characters that are unsafe
// in filenames on common filesystems.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	name = strings.TrimSpace(name)
	for _, c := range []string{"/", ":", "*", "?", "\"", "<", ">", "|"} {
		name = strings.ReplaceAll(name, c, "_")
	}
	return name
}
