// Package normalize strips catalog boilerplate from raw book text.
package normalize

import "strings"

// Project Gutenberg texts wrap the narrative body in marker lines like
// "*** START OF THE PROJECT GUTENBERG EBOOK ... ***". Only the leading
// "*** start of" / "*** end of" substring is stable across editions.
const (
	startMarker = "*** start of"
	endMarker   = "*** end of"
)

// StripBoilerplate isolates the narrative body of a raw book text.
//
// A case-insensitive line containing the start marker opens the retained
// region (the marker line itself is discarded), and a line containing
// the end marker closes it (content after is discarded). Lines in
// between are trimmed of surrounding whitespace and kept in order.
//
// If either marker is missing the trimmed original text is returned
// unchanged: partial or garbled text beats empty output, and this
// function never fails.
func StripBoilerplate(raw string) string {
	var (
		body       []string
		inBody     bool
		startFound bool
		endFound   bool
	)

	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, startMarker) {
			inBody = true
			startFound = true
			continue
		}
		if strings.Contains(lower, endMarker) {
			endFound = true
			break
		}
		if inBody {
			body = append(body, strings.TrimSpace(line))
		}
	}

	if !startFound || !endFound {
		return strings.TrimSpace(raw)
	}

	return strings.TrimSpace(strings.Join(body, "\n"))
}
