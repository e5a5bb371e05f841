package links

import "strings"

// Annotation keys read from a link's metadata
const (
	AnnotationEnableMonitor = "enableFriendLinkHealthMonitor"
	AnnotationFriendLinkURL = "friendLinkUrl"
)

// Annotations are the monitor settings attached to a single link
type Annotations struct {
	EnableFriendLinkHealthMonitor bool   `json:"enableFriendLinkHealthMonitor"`
	FriendLinkURL                 string `json:"friendLinkUrl,omitempty"`
}

// AnnotationsFromMap extracts the monitor annotations from m.
// Keys are matched case-insensitively because config loaders may fold them.
// Unrelated keys are ignored.
func AnnotationsFromMap(m map[string]string) Annotations {
	var a Annotations
	for k, v := range m {
		switch {
		case strings.EqualFold(k, AnnotationEnableMonitor):
			a.EnableFriendLinkHealthMonitor = strings.EqualFold(v, "true")
		case strings.EqualFold(k, AnnotationFriendLinkURL):
			a.FriendLinkURL = v
		}
	}
	return a
}
