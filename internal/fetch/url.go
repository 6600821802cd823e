package fetch

import (
	"fmt"
	"net/url"
	"regexp"
)

// ErrInvalidURL is returned when a source URL does not contain a
// recognizable spreadsheet identifier.
var ErrInvalidURL = fmt.Errorf("url does not contain a spreadsheet id")

// docIDPattern matches the document identifier in a share link of the
// form .../spreadsheets/d/<id>/...
var docIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]{10,})`)

// SpreadsheetID extracts the document identifier from a share link.
// Both path-style links (/spreadsheets/d/<id>) and legacy query-style
// links (?id=<id>) are recognized.
func SpreadsheetID(rawURL string) (string, error) {
	if m := docIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if id := u.Query().Get("id"); len(id) >= 10 {
		return id, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
}

// ExportURL converts a share link to a direct xlsx export link.
func ExportURL(rawURL string) (string, error) {
	id, err := SpreadsheetID(rawURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=xlsx", id), nil
}
