package links

import (
	"strings"
)

// NormalizeURL folds backslashes, collapses repeated slashes, restores the
// scheme separator and strips a trailing slash. A bare "/" becomes "".
func NormalizeURL(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}

	s = strings.ReplaceAll(s, `\`, "/")
	s = multiSlash.ReplaceAllString(s, "/")

	for _, scheme := range []string{"https:/", "http:/"} {
		if strings.HasPrefix(s, scheme) {
			s = scheme + "/" + strings.TrimPrefix(s, scheme)
			break
		}
	}

	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	if s == "/" {
		return ""
	}
	return s
}
