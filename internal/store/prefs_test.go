package store

import "testing"

func TestToggleThemeCycle(t *testing.T) {
	p := NewPreferences(nil)
	p.SetTheme(ThemeLight)

	want := []Theme{ThemeDark, ThemeSystem, ThemeLight, ThemeDark}
	for i, w := range want {
		if got := p.ToggleTheme(); got != w {
			t.Fatalf("toggle %d = %s, want %s", i, got, w)
		}
	}
}

func TestEffectiveThemeFollowsHost(t *testing.T) {
	dark := false
	p := NewPreferences(func() bool { return dark })

	if got := p.EffectiveTheme(); got != ThemeLight {
		t.Errorf("system on light host = %s", got)
	}

	// The host preference is read on every call, not cached.
	dark = true
	if got := p.EffectiveTheme(); got != ThemeDark {
		t.Errorf("system on dark host = %s", got)
	}

	p.SetTheme(ThemeLight)
	if got := p.EffectiveTheme(); got != ThemeLight {
		t.Errorf("explicit light = %s", got)
	}
}

func TestParseTheme(t *testing.T) {
	tests := map[string]Theme{
		"light":  ThemeLight,
		"dark":   ThemeDark,
		"system": ThemeSystem,
		"":       ThemeSystem,
		"sepia":  ThemeSystem,
	}
	for in, want := range tests {
		if got := ParseTheme(in); got != want {
			t.Errorf("ParseTheme(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNextViewWraps(t *testing.T) {
	p := NewPreferences(nil)
	if p.Snapshot().View != ViewDashboard {
		t.Fatalf("initial view = %s", p.Snapshot().View)
	}

	for _, want := range []View{ViewAlerts, ViewSettings, ViewAnalytics, ViewDashboard} {
		if got := p.NextView(); got != want {
			t.Errorf("next = %s, want %s", got, want)
		}
	}
}

func TestSetViewAndSidebar(t *testing.T) {
	p := NewPreferences(nil)
	p.SetView(ViewSettings)
	p.ToggleSidebar()

	snap := p.Snapshot()
	if snap.View != ViewSettings || !snap.SidebarOpen {
		t.Errorf("snap = %+v", snap)
	}
}
