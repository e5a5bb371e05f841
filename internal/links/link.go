package links

// Link is a friend link registered on our site
type Link struct {
	Name        string            `json:"name" validate:"required"`
	URL         string            `json:"url" validate:"required,url"`
	DisplayName string            `json:"display_name"`
	Logo        string            `json:"logo,omitempty" validate:"omitempty,url"`
	GroupName   string            `json:"group_name,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Deleted     bool              `json:"deleted,omitempty"`
}

// LinkGroup groups links on the friend page
type LinkGroup struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"display_name"`
}

// Metadata returns the parsed monitor annotations of l
func (l Link) Metadata() Annotations {
	return AnnotationsFromMap(l.Annotations)
}
