package links

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultFriendLinkRoutes are tried before any configured route
var DefaultFriendLinkRoutes = []string{"/links", "/link", "/friends", "/friend"}

var multiSlash = regexp.MustCompile(`/+`)

// AllFriendLinkRoutes returns the default routes followed by the normalised,
// de-duplicated custom routes. Blank and root-only entries are dropped.
func AllFriendLinkRoutes(custom []string) []string {
	out := make([]string, 0, len(DefaultFriendLinkRoutes)+len(custom))
	seen := make(map[string]bool, cap(out))

	add := func(r string) {
		if r == "" || seen[r] {
			return
		}
		seen[r] = true
		out = append(out, r)
	}

	for _, r := range DefaultFriendLinkRoutes {
		add(r)
	}
	for _, r := range custom {
		r = cleanRoute(r)
		if isRootOrBlank(r) {
			continue
		}
		add(normalizeRoute(r))
	}

	return out
}

func cleanRoute(r string) string {
	r = strings.TrimSpace(r)
	r = strings.ReplaceAll(r, `\`, "/")
	return multiSlash.ReplaceAllString(r, "/")
}

func isRootOrBlank(r string) bool {
	for _, c := range r {
		if c != '/' && !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

func normalizeRoute(r string) string {
	if !strings.HasPrefix(r, "/") {
		r = "/" + r
	}
	if len(r) > 1 {
		r = strings.TrimSuffix(r, "/")
	}
	return r
}
