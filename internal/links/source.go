package links

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/stone-age-io/links-health-monitor/internal/config"
)

// Source supplies the link inventory for a health pass
type Source interface {
	Links(ctx context.Context) ([]Link, error)
	GroupDisplayName(ctx context.Context, name string) string
}

// StaticSource serves links declared in configuration.
// Declaration order is creation order.
type StaticSource struct {
	links  []Link
	groups map[string]string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewStaticSource builds a source from configured links and groups.
// Deleted links are dropped; remaining entries must pass validation.
func NewStaticSource(links []config.LinkConfig, groups []config.LinkGroupConfig) (*StaticSource, error) {
	s := &StaticSource{
		links:  make([]Link, 0, len(links)),
		groups: make(map[string]string, len(groups)),
	}

	for _, g := range groups {
		group := LinkGroup{Name: g.Name, DisplayName: g.DisplayName}
		if err := validate.Struct(group); err != nil {
			return nil, fmt.Errorf("invalid link group %q: %w", g.Name, err)
		}
		s.groups[group.Name] = group.DisplayName
	}

	for _, lc := range links {
		if lc.Deleted {
			continue
		}
		l := Link{
			Name:        lc.Name,
			URL:         lc.URL,
			DisplayName: lc.DisplayName,
			Logo:        lc.Logo,
			GroupName:   lc.GroupName,
			Annotations: lc.Annotations,
		}
		if err := validate.Struct(l); err != nil {
			return nil, fmt.Errorf("invalid link %q: %w", lc.Name, err)
		}
		s.links = append(s.links, l)
	}

	return s, nil
}

// Links returns a copy of the live links in creation order
func (s *StaticSource) Links(ctx context.Context) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out, nil
}

// GroupDisplayName returns the display name of the named group, or "" if unknown
func (s *StaticSource) GroupDisplayName(_ context.Context, name string) string {
	return s.groups[name]
}
