package store

import "sync"

// Theme is the display theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme returns the theme named s, or ThemeSystem if s is unknown.
func ParseTheme(s string) Theme {
	switch Theme(s) {
	case ThemeLight, ThemeDark, ThemeSystem:
		return Theme(s)
	}
	return ThemeSystem
}

// View is the popup's active screen.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewAlerts    View = "alerts"
	ViewSettings  View = "settings"
	ViewAnalytics View = "analytics"
)

// Views lists every view in navigation order.
var Views = []View{ViewDashboard, ViewAlerts, ViewSettings, ViewAnalytics}

// ColorScheme reports whether the host currently prefers a dark scheme.
type ColorScheme func() bool

// PrefsState is a copy of the preference store.
type PrefsState struct {
	Theme       Theme
	View        View
	SidebarOpen bool
}

// Preferences holds display preferences. Only the theme outlives the
// process; the view and sidebar reset on every start.
type Preferences struct {
	mu     sync.RWMutex
	state  PrefsState
	scheme ColorScheme
	obs    observers
}

// NewPreferences returns a store on the dashboard with the system theme.
// scheme is consulted each time the effective theme is read.
func NewPreferences(scheme ColorScheme) *Preferences {
	if scheme == nil {
		scheme = func() bool { return false }
	}
	return &Preferences{
		state:  PrefsState{Theme: ThemeSystem, View: ViewDashboard},
		scheme: scheme,
	}
}

// Subscribe registers fn to run after every change.
func (p *Preferences) Subscribe(fn func()) (unsubscribe func()) {
	return p.obs.subscribe(fn)
}

// Snapshot returns a copy of the store.
func (p *Preferences) Snapshot() PrefsState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Preferences) update(fn func(*PrefsState)) {
	p.mu.Lock()
	fn(&p.state)
	p.mu.Unlock()
	p.obs.notify()
}

// SetTheme replaces the theme.
func (p *Preferences) SetTheme(theme Theme) {
	p.update(func(st *PrefsState) { st.Theme = theme })
}

// ToggleTheme cycles light → dark → system → light and returns the new theme.
func (p *Preferences) ToggleTheme() Theme {
	var next Theme
	p.update(func(st *PrefsState) {
		switch st.Theme {
		case ThemeLight:
			st.Theme = ThemeDark
		case ThemeDark:
			st.Theme = ThemeSystem
		default:
			st.Theme = ThemeLight
		}
		next = st.Theme
	})
	return next
}

// EffectiveTheme resolves ThemeSystem against the host's color scheme at
// call time. It is never ThemeSystem.
func (p *Preferences) EffectiveTheme() Theme {
	p.mu.RLock()
	theme := p.state.Theme
	p.mu.RUnlock()

	if theme != ThemeSystem {
		return theme
	}
	if p.scheme() {
		return ThemeDark
	}
	return ThemeLight
}

// SetView switches the active view.
func (p *Preferences) SetView(v View) {
	p.update(func(st *PrefsState) { st.View = v })
}

// NextView advances to the following view, wrapping around.
func (p *Preferences) NextView() View {
	var next View
	p.update(func(st *PrefsState) {
		next = Views[0]
		for i, v := range Views {
			if v == st.View {
				next = Views[(i+1)%len(Views)]
				break
			}
		}
		st.View = next
	})
	return next
}

// ToggleSidebar flips the sidebar flag.
func (p *Preferences) ToggleSidebar() {
	p.update(func(st *PrefsState) { st.SidebarOpen = !st.SidebarOpen })
}
