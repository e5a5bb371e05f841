package links

import (
	"reflect"
	"testing"
)

func withDefaults(custom ...string) []string {
	return append(append([]string{}, DefaultFriendLinkRoutes...), custom...)
}

// TestAllFriendLinkRoutes tests route normalisation and ordering
func TestAllFriendLinkRoutes(t *testing.T) {
	tests := []struct {
		name   string
		custom []string
		want   []string
	}{
		{
			name:   "nil",
			custom: nil,
			want:   withDefaults(),
		},
		{
			name:   "empty",
			custom: []string{},
			want:   withDefaults(),
		},
		{
			name:   "normalise and append",
			custom: []string{"about", "/blog/", "  project/test  ", "/a//b//c"},
			want:   withDefaults("/about", "/blog", "/project/test", "/a/b/c"),
		},
		{
			name:   "backslashes",
			custom: []string{`\links`, `about\page`, `\\admin\\`, `x\y\z\`},
			want:   withDefaults("/about/page", "/admin", "/x/y/z"),
		},
		{
			name:   "root forms filtered",
			custom: []string{"/", "///", " / ", `\`, `\\`, " \\\t\n ", "", "   "},
			want:   withDefaults(),
		},
		{
			name:   "dedupe against defaults",
			custom: []string{"/links", "/links/", `\link`, "/extra"},
			want:   withDefaults("/extra"),
		},
		{
			name:   "dedupe custom",
			custom: []string{"/a", "/a/", `/a\`, `\\a`, "/a"},
			want:   withDefaults("/a"),
		},
		{
			name:   "mixed valid and invalid",
			custom: []string{"", "   ", "/", `\\`, "valid1", `\valid2\`, "/dups/dups//", "valid1"},
			want:   withDefaults("/valid1", "/valid2", "/dups/dups"),
		},
		{
			name:   "case and special characters kept",
			custom: []string{"/API/V1", "/täg-test", "/path+with@special&chars"},
			want:   withDefaults("/API/V1", "/täg-test", "/path+with@special&chars"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AllFriendLinkRoutes(tt.custom)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AllFriendLinkRoutes() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestAllFriendLinkRoutesDoesNotAlias tests that the defaults are never modified
func TestAllFriendLinkRoutesDoesNotAlias(t *testing.T) {
	got := AllFriendLinkRoutes([]string{"/extra"})
	got[0] = "/changed"
	if DefaultFriendLinkRoutes[0] != "/links" {
		t.Errorf("DefaultFriendLinkRoutes[0] = %q, want /links", DefaultFriendLinkRoutes[0])
	}
}
