package csv

import "strings"

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimSpace(strings.TrimPrefix(headers[0], utf8BOM))
	return headers
}
