package common

import "strings"

// BearerToken extracts the token from an Authorization header value.
// It returns "" unless the value starts with BearerPrefix and the remainder
// is non-blank.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, BearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	return token
}
