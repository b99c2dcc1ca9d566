// Package model defines the records shared between the popup stores, the
// message protocol and durable storage. JSON tags match the extension's
// wire names.
package model

import "fmt"

// MonitoringState is the lifecycle state of a monitoring session.
type MonitoringState string

const (
	StateIdle         MonitoringState = "IDLE"
	StateInitializing MonitoringState = "INITIALIZING"
	StateActive       MonitoringState = "ACTIVE"
	StatePaused       MonitoringState = "PAUSED"
	StateError        MonitoringState = "ERROR"
)

// Valid reports whether s is one of the known states.
func (s MonitoringState) Valid() bool {
	switch s {
	case StateIdle, StateInitializing, StateActive, StatePaused, StateError:
		return true
	}
	return false
}

// Platform identifies the meeting platform a session runs on.
type Platform string

const (
	PlatformGoogleMeet Platform = "google-meet"
	PlatformZoom       Platform = "zoom"
	PlatformTeams      Platform = "teams"
	PlatformUnknown    Platform = "unknown"
)

// SessionInfo identifies one monitoring session. Times are Unix milliseconds.
type SessionInfo struct {
	ID               string   `json:"id"`
	Platform         Platform `json:"platform"`
	StartTime        int64    `json:"startTime"`
	EndTime          *int64   `json:"endTime,omitempty"`
	ParticipantCount int      `json:"participantCount"`
	URL              string   `json:"url"`
}

// TrustLevel is the qualitative rating supplied by the producer.
type TrustLevel string

const (
	LevelSafe    TrustLevel = "safe"
	LevelCaution TrustLevel = "caution"
	LevelDanger  TrustLevel = "danger"
	LevelUnknown TrustLevel = "unknown"
)

// TrustScoreSnapshot is one point-in-time measurement. Snapshots are never
// modified after they are received.
type TrustScoreSnapshot struct {
	Timestamp  int64      `json:"timestamp"`
	Overall    float64    `json:"overall"`
	Visual     float64    `json:"visual"`
	Audio      float64    `json:"audio"`
	Behavioral float64    `json:"behavioral"`
	Confidence float64    `json:"confidence"`
	Level      TrustLevel `json:"level"`
}

// Severity of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category of the analysis that raised an alert.
type Category string

const (
	CategoryVisual     Category = "visual"
	CategoryAudio      Category = "audio"
	CategoryBehavioral Category = "behavioral"
	CategoryFusion     Category = "fusion"
)

// Alert is a producer-raised warning. The popup only ever flips Dismissed.
type Alert struct {
	ID             string   `json:"id"`
	Timestamp      int64    `json:"timestamp"`
	Severity       Severity `json:"severity"`
	Category       Category `json:"category"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Details        string   `json:"details,omitempty"`
	ActionRequired bool     `json:"actionRequired"`
	Dismissed      bool     `json:"dismissed"`
	ParticipantID  string   `json:"participantId,omitempty"`
}

// CurrentSessionStats aggregates the running session.
type CurrentSessionStats struct {
	Duration             int64   `json:"duration"`
	FramesAnalyzed       int     `json:"framesAnalyzed"`
	AudioChunksAnalyzed  int     `json:"audioChunksAnalyzed"`
	TranscriptsProcessed int     `json:"transcriptsProcessed"`
	AlertsTriggered      int     `json:"alertsTriggered"`
	AverageTrustScore    float64 `json:"averageTrustScore"`
	MinTrustScore        float64 `json:"minTrustScore"`
	MaxTrustScore        float64 `json:"maxTrustScore"`
}

// AllTimeStats aggregates every session ever run.
type AllTimeStats struct {
	TotalDuration        int64 `json:"totalDuration"`
	TotalFramesAnalyzed  int   `json:"totalFramesAnalyzed"`
	TotalAlertsTriggered int   `json:"totalAlertsTriggered"`
}

// SessionStatistics is replaced wholesale on every update.
type SessionStatistics struct {
	TotalSessions  int                  `json:"totalSessions"`
	CurrentSession *CurrentSessionStats `json:"currentSession,omitempty"`
	AllTime        AllTimeStats         `json:"allTime"`
}

// TrustThresholds must satisfy Safe > Caution > Danger to be meaningful.
type TrustThresholds struct {
	Safe    int `json:"safe"`
	Caution int `json:"caution"`
	Danger  int `json:"danger"`
}

// CaptureSettings tunes how the content script samples a meeting.
type CaptureSettings struct {
	VideoFPS              int `json:"videoFps"`
	AudioDuration         int `json:"audioDuration"`
	MaxConcurrentRequests int `json:"maxConcurrentRequests"`
}

// ExtensionSettings is the user-owned configuration record.
type ExtensionSettings struct {
	APIKey              string          `json:"apiKey"`
	Model               string          `json:"model"`
	EnableNotifications bool            `json:"enableNotifications"`
	EnableSoundAlerts   bool            `json:"enableSoundAlerts"`
	TrustThresholds     TrustThresholds `json:"trustThresholds"`
	CaptureSettings     CaptureSettings `json:"captureSettings"`
	EnableTelemetry     bool            `json:"enableTelemetry"`
	DebugMode           bool            `json:"debugMode"`
}

// DefaultSettings returns the built-in settings record.
func DefaultSettings() ExtensionSettings {
	return ExtensionSettings{
		Model:               "gemini-2.0-flash-exp",
		EnableNotifications: true,
		EnableSoundAlerts:   true,
		TrustThresholds: TrustThresholds{
			Safe:    85,
			Caution: 50,
			Danger:  0,
		},
		CaptureSettings: CaptureSettings{
			VideoFPS:              1,
			AudioDuration:         2000,
			MaxConcurrentRequests: 3,
		},
	}
}

// MonitoringSnapshot is the monitoring block of a state pull.
type MonitoringSnapshot struct {
	State          MonitoringState `json:"state"`
	CurrentSession *SessionInfo    `json:"currentSession,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// TrustScoreBlock is the trust score block of a state pull.
type TrustScoreBlock struct {
	Current *TrustScoreSnapshot  `json:"current"`
	History []TrustScoreSnapshot `json:"history"`
}

// AlertsBlock is the alerts block of a state pull.
type AlertsBlock struct {
	Active  []Alert `json:"active"`
	History []Alert `json:"history"`
}

// CurrentState is the full snapshot returned by a GET_CURRENT_STATE pull.
type CurrentState struct {
	Monitoring MonitoringSnapshot `json:"monitoring"`
	TrustScore TrustScoreBlock    `json:"trustScore"`
	Alerts     AlertsBlock        `json:"alerts"`
	Statistics SessionStatistics  `json:"statistics"`
}

// Validate rejects snapshots that cannot have come from a healthy producer.
func (s CurrentState) Validate() error {
	if !s.Monitoring.State.Valid() {
		return fmt.Errorf("unknown monitoring state %q", s.Monitoring.State)
	}
	return nil
}
