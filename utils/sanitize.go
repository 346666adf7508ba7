package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks. Applied to blog and
// announcement bodies before persisting them.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
