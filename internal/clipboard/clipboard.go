// Package clipboard extracts downloadable URLs from the system clipboard
// for the terminal shell's quick-add flow.
package clipboard

import (
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

const maxClipboardLen = 2048

// ExtractURL returns a cleaned absolute http(s) URL from text, or "" when
// the text is not usable as a download source.
func ExtractURL(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxClipboardLen || strings.ContainsAny(text, "\n\r") {
		return ""
	}
	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

// ReadURL reads the clipboard and returns a valid URL if one is present.
func ReadURL() string {
	text, err := clipboard.ReadAll()
	if err != nil {
		return ""
	}
	return ExtractURL(text)
}
