package plugin

import (
	"context"
)

// Revision selects which generation of the console descriptor to build
type Revision string

const (
	// RevisionA registers the tool page only
	RevisionA Revision = "A"
	// RevisionB also contributes the settings tab
	RevisionB Revision = "B"
)

// View names of the console bundle
const (
	MonitorView   StaticComponent = "LinksHealthMonitor"
	SettingsView  StaticComponent = "LinksHealthMonitorSettings"
	DashboardIcon                 = "IconDashboard"
)

// LinksHealthMonitor builds the console descriptor for the monitor plugin
func LinksHealthMonitor(rev Revision) Descriptor {
	d := Descriptor{
		Components: map[string]Component{},
		Routes: []RouteRecord{
			{
				ParentName: ParentToolsRoot,
				Route: Route{
					Path:      "/linksHealth",
					Name:      "LinksHealthMonitor",
					Component: MonitorView,
					Meta: Meta{
						Title:      "Links Health Monitor",
						Searchable: true,
						Menu: &Menu{
							Name:     "Links Health Monitor",
							Group:    "tool",
							Icon:     DashboardIcon,
							Priority: 0,
							Mobile:   true,
						},
					},
				},
			},
		},
		ExtensionPoints: map[string]func() []Tab{},
	}

	if rev == RevisionB {
		settings := NewAsyncComponent(func(context.Context) (Component, error) {
			return SettingsView, nil
		})
		d.ExtensionPoints[ExtensionPointSelfTabsCreate] = func() []Tab {
			return []Tab{
				{
					ID:          "links-health-monitor-settings",
					Label:       "友链监测设置",
					Component:   settings,
					Permissions: []string{"*"},
				},
			}
		}
	}

	return d
}

// Manifest is the JSON form of a descriptor served to the console
type Manifest struct {
	Components      []string                 `json:"components"`
	Routes          []RouteManifest          `json:"routes"`
	ExtensionPoints map[string][]TabManifest `json:"extensionPoints"`
}

// RouteManifest is the JSON form of a RouteRecord
type RouteManifest struct {
	ParentName string    `json:"parentName"`
	Route      RouteJSON `json:"route"`
}

// RouteJSON is the JSON form of a Route
type RouteJSON struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	Component string   `json:"component"`
	Meta      MetaJSON `json:"meta"`
}

// MetaJSON is the JSON form of Meta
type MetaJSON struct {
	Title      string `json:"title"`
	Searchable bool   `json:"searchable"`
	Menu       *Menu  `json:"menu,omitempty"`
}

// TabManifest is the JSON form of a Tab
type TabManifest struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Component   string   `json:"component"`
	Loading     string   `json:"loading,omitempty"`
	Permissions []string `json:"permissions"`
}

// Manifest renders d for the console. Extension point callbacks are invoked.
func (d Descriptor) Manifest() Manifest {
	m := Manifest{
		Components:      make([]string, 0, len(d.Components)),
		Routes:          make([]RouteManifest, 0, len(d.Routes)),
		ExtensionPoints: make(map[string][]TabManifest, len(d.ExtensionPoints)),
	}

	for name := range d.Components {
		m.Components = append(m.Components, name)
	}

	for _, rec := range d.Routes {
		m.Routes = append(m.Routes, RouteManifest{
			ParentName: rec.ParentName,
			Route: RouteJSON{
				Path:      rec.Route.Path,
				Name:      rec.Route.Name,
				Component: componentName(rec.Route.Component),
				Meta: MetaJSON{
					Title:      rec.Route.Meta.Title,
					Searchable: rec.Route.Meta.Searchable,
					Menu:       rec.Route.Meta.Menu,
				},
			},
		})
	}

	for _, id := range d.ExtensionPointIDs() {
		tabs := d.ExtensionPoints[id]()
		out := make([]TabManifest, 0, len(tabs))
		for _, tab := range tabs {
			out = append(out, TabManifest{
				ID:          tab.ID,
				Label:       tab.Label,
				Component:   componentName(tab.Component),
				Loading:     loadingName(tab.Component),
				Permissions: tab.Permissions,
			})
		}
		m.ExtensionPoints[id] = out
	}

	return m
}

// loadingName is the placeholder of a deferred component, empty otherwise
func loadingName(c Component) string {
	a, ok := c.(*AsyncComponent)
	if !ok {
		return ""
	}
	if a.Loading == nil {
		return string(LoadingComponent)
	}
	return a.Loading.ComponentName()
}

func componentName(c Component) string {
	if c == nil {
		return ""
	}
	return c.ComponentName()
}
