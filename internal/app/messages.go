package app

import (
	"github.com/jwulff/trustguard/internal/analytics"
	"github.com/jwulff/trustguard/internal/store"
)

// StoreChangedMsg is sent whenever one of the stores changes. The model
// re-reads its snapshots on receipt.
type StoreChangedMsg struct{}

// CommandDoneMsg reports the outcome of a command sent to the extension.
type CommandDoneMsg struct {
	Command string
	Err     error
}

// SettingsSavedMsg carries the outcome of a save.
type SettingsSavedMsg struct {
	Warnings []analytics.Warning
	Err      error
}

// ThemeChangedMsg carries the theme after a toggle.
type ThemeChangedMsg struct {
	Theme store.Theme
	Err   error
}

// ClearNoticeMsg clears a transient notice after a timeout.
type ClearNoticeMsg struct {
	seq int
}
