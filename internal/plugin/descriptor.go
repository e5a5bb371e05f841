package plugin

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidDescriptor is returned by Define when the descriptor is malformed
var ErrInvalidDescriptor = errors.New("invalid plugin descriptor")

// Extension point identifiers understood by the console
const (
	ExtensionPointSelfTabsCreate = "plugin:self:tabs:create"
)

// Parent routes exposed by the console
const (
	ParentToolsRoot = "ToolsRoot"
)

// Host is the console capability a plugin registers itself with.
// Whatever runtime hosts the plugin implements this one method.
type Host interface {
	DefinePlugin(d Descriptor) error
}

// HostFunc adapts a plain function to Host
type HostFunc func(d Descriptor) error

// DefinePlugin calls f(d)
func (f HostFunc) DefinePlugin(d Descriptor) error {
	return f(d)
}

// Component names a view the console knows how to render
type Component interface {
	ComponentName() string
}

// StaticComponent is a component that is available immediately
type StaticComponent string

// ComponentName returns the view name
func (c StaticComponent) ComponentName() string {
	return string(c)
}

// Descriptor is the declaration handed to the host at load time
type Descriptor struct {
	Components      map[string]Component
	Routes          []RouteRecord
	ExtensionPoints map[string]func() []Tab
}

// RouteRecord mounts Route under the host route named ParentName
type RouteRecord struct {
	ParentName string
	Route      Route
}

// Route is a single console page
type Route struct {
	Path      string
	Name      string
	Component Component
	Meta      Meta
}

// Meta carries page title and menu placement
type Meta struct {
	Title      string
	Searchable bool
	Menu       *Menu
}

// Menu describes the sidebar entry for a route
type Menu struct {
	Name     string `json:"name"`
	Group    string `json:"group"`
	Icon     string `json:"icon"`
	Priority int    `json:"priority"`
	Mobile   bool   `json:"mobile"`
}

// Tab is a settings tab contributed through an extension point
type Tab struct {
	ID          string
	Label       string
	Component   Component
	Permissions []string
}

// Define validates d and registers it with host
func Define(host Host, d Descriptor) error {
	if host == nil {
		return fmt.Errorf("%w: host is nil", ErrInvalidDescriptor)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if err := host.DefinePlugin(d); err != nil {
		return fmt.Errorf("host rejected plugin: %w", err)
	}
	return nil
}

// Validate checks the structural requirements the console places on a descriptor
func (d Descriptor) Validate() error {
	names := make(map[string]bool)
	for i, rec := range d.Routes {
		if rec.ParentName == "" {
			return fmt.Errorf("%w: route %d has no parent", ErrInvalidDescriptor, i)
		}
		r := rec.Route
		if r.Path == "" || r.Path[0] != '/' {
			return fmt.Errorf("%w: route %d path %q must start with /", ErrInvalidDescriptor, i, r.Path)
		}
		if r.Name == "" {
			return fmt.Errorf("%w: route %d has no name", ErrInvalidDescriptor, i)
		}
		if names[r.Name] {
			return fmt.Errorf("%w: duplicate route name %q", ErrInvalidDescriptor, r.Name)
		}
		names[r.Name] = true
		if r.Component == nil {
			return fmt.Errorf("%w: route %q has no component", ErrInvalidDescriptor, r.Name)
		}
	}

	for id, fn := range d.ExtensionPoints {
		if id == "" {
			return fmt.Errorf("%w: empty extension point id", ErrInvalidDescriptor)
		}
		if fn == nil {
			return fmt.Errorf("%w: extension point %q has no callback", ErrInvalidDescriptor, id)
		}
	}
	return nil
}

// ExtensionPointIDs returns the registered extension point identifiers, sorted
func (d Descriptor) ExtensionPointIDs() []string {
	ids := make([]string, 0, len(d.ExtensionPoints))
	for id := range d.ExtensionPoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
