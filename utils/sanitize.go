package utils

import "github.com/microcosm-cc/bluemonday"

// Note metadata is plain text, so strip all markup rather than allowing a UGC subset.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips HTML from user provided text to prevent stored XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
