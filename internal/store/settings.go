package store

import (
	"fmt"
	"sync"

	"github.com/jwulff/trustguard/internal/model"
)

// Setting keys accepted by UpdateSetting. They match the wire names.
const (
	SettingAPIKey              = "apiKey"
	SettingModel               = "model"
	SettingEnableNotifications = "enableNotifications"
	SettingEnableSoundAlerts   = "enableSoundAlerts"
	SettingTrustThresholds     = "trustThresholds"
	SettingCaptureSettings     = "captureSettings"
	SettingEnableTelemetry     = "enableTelemetry"
	SettingDebugMode           = "debugMode"
)

// ThresholdKey selects one field of model.TrustThresholds.
type ThresholdKey string

const (
	ThresholdSafe    ThresholdKey = "safe"
	ThresholdCaution ThresholdKey = "caution"
	ThresholdDanger  ThresholdKey = "danger"
)

// SettingsState is a copy of the settings store.
type SettingsState struct {
	Settings          model.ExtensionSettings
	IsLoading         bool
	IsSaving          bool
	HasUnsavedChanges bool
}

// Settings holds the user's configuration with dirty tracking. It is written
// by user edits and by loading from durable storage.
type Settings struct {
	mu    sync.RWMutex
	state SettingsState
	obs   observers
}

// NewSettings returns a store holding the built-in defaults.
func NewSettings() *Settings {
	return &Settings{state: SettingsState{Settings: model.DefaultSettings()}}
}

// Subscribe registers fn to run after every change.
func (s *Settings) Subscribe(fn func()) (unsubscribe func()) {
	return s.obs.subscribe(fn)
}

// Snapshot returns a copy of the store.
func (s *Settings) Snapshot() SettingsState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Settings) update(fn func(*SettingsState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.obs.notify()
}

// SetSettings replaces the record wholesale and clears the dirty flag.
func (s *Settings) SetSettings(settings model.ExtensionSettings) {
	s.update(func(st *SettingsState) {
		st.Settings = settings
		st.HasUnsavedChanges = false
	})
}

// UpdateSetting replaces one top-level field by its wire key and marks the
// store dirty. An unknown key or a value of the wrong type changes nothing.
func (s *Settings) UpdateSetting(key string, value any) error {
	s.mu.Lock()
	next := s.state.Settings
	if err := setField(&next, key, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.Settings = next
	s.state.HasUnsavedChanges = true
	s.mu.Unlock()

	s.obs.notify()
	return nil
}

func setField(st *model.ExtensionSettings, key string, value any) error {
	var ok bool
	switch key {
	case SettingAPIKey:
		st.APIKey, ok = value.(string)
	case SettingModel:
		st.Model, ok = value.(string)
	case SettingEnableNotifications:
		st.EnableNotifications, ok = value.(bool)
	case SettingEnableSoundAlerts:
		st.EnableSoundAlerts, ok = value.(bool)
	case SettingTrustThresholds:
		st.TrustThresholds, ok = value.(model.TrustThresholds)
	case SettingCaptureSettings:
		st.CaptureSettings, ok = value.(model.CaptureSettings)
	case SettingEnableTelemetry:
		st.EnableTelemetry, ok = value.(bool)
	case SettingDebugMode:
		st.DebugMode, ok = value.(bool)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if !ok {
		return fmt.Errorf("setting %q: unexpected value type %T", key, value)
	}
	return nil
}

// UpdateThreshold replaces one trust threshold and marks the store dirty.
// Ordering between thresholds is not enforced here.
func (s *Settings) UpdateThreshold(key ThresholdKey, value int) error {
	s.mu.Lock()
	t := &s.state.Settings.TrustThresholds
	switch key {
	case ThresholdSafe:
		t.Safe = value
	case ThresholdCaution:
		t.Caution = value
	case ThresholdDanger:
		t.Danger = value
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown threshold %q", key)
	}
	s.state.HasUnsavedChanges = true
	s.mu.Unlock()

	s.obs.notify()
	return nil
}

// ResetToDefaults restores the built-in record. The reset itself is an
// unsaved change.
func (s *Settings) ResetToDefaults() {
	s.update(func(st *SettingsState) {
		st.Settings = model.DefaultSettings()
		st.HasUnsavedChanges = true
	})
}

// SetLoading toggles the loading flag.
func (s *Settings) SetLoading(loading bool) {
	s.update(func(st *SettingsState) { st.IsLoading = loading })
}

// SetSaving toggles the saving flag.
func (s *Settings) SetSaving(saving bool) {
	s.update(func(st *SettingsState) { st.IsSaving = saving })
}

// MarkSaved clears the dirty flag if the record still equals saved. An edit
// made while the save was in flight stays dirty.
func (s *Settings) MarkSaved(saved model.ExtensionSettings) {
	s.update(func(st *SettingsState) {
		if st.Settings == saved {
			st.HasUnsavedChanges = false
		}
	})
}
