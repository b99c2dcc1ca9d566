package store

import (
	"sync"

	"github.com/jwulff/trustguard/internal/model"
)

// History capacities.
const (
	ScoreHistoryCap = 100
	AlertHistoryCap = 1000
)

// LiveState is a point-in-time copy of the live session store. Callers own
// the returned slices and pointers.
type LiveState struct {
	MonitoringState model.MonitoringState      `json:"monitoringState"`
	CurrentSession  *model.SessionInfo         `json:"currentSession,omitempty"`
	Error           string                     `json:"error,omitempty"`
	CurrentScore    *model.TrustScoreSnapshot  `json:"currentScore,omitempty"`
	ScoreHistory    []model.TrustScoreSnapshot `json:"scoreHistory"` // oldest first
	ActiveAlerts    []model.Alert              `json:"activeAlerts"` // most recent first
	AlertHistory    []model.Alert              `json:"alertHistory"` // most recent first
	Statistics      model.SessionStatistics    `json:"statistics"`
	Connected       bool                       `json:"connected"`
}

// LiveSession holds the volatile state owned by the background producer:
// monitoring lifecycle, trust scores, alerts and statistics. Every mutator
// is total, synchronous and atomic with respect to the others.
type LiveSession struct {
	mu sync.RWMutex

	state        model.MonitoringState
	session      *model.SessionInfo
	err          string
	current      *model.TrustScoreSnapshot
	scores       *History[model.TrustScoreSnapshot]
	active       []model.Alert
	alertHistory *History[model.Alert]
	stats        model.SessionStatistics
	connected    bool

	obs observers
}

// NewLiveSession returns a store in its initial state.
func NewLiveSession() *LiveSession {
	return &LiveSession{
		state:        model.StateIdle,
		scores:       NewHistory[model.TrustScoreSnapshot](ScoreHistoryCap),
		alertHistory: NewHistory[model.Alert](AlertHistoryCap),
	}
}

// Subscribe registers fn to run after every change.
func (s *LiveSession) Subscribe(fn func()) (unsubscribe func()) {
	return s.obs.subscribe(fn)
}

// Snapshot returns a copy of the current state.
func (s *LiveSession) Snapshot() LiveState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return LiveState{
		MonitoringState: s.state,
		CurrentSession:  copySession(s.session),
		Error:           s.err,
		CurrentScore:    copyScore(s.current),
		ScoreHistory:    s.scores.Items(),
		ActiveAlerts:    append([]model.Alert(nil), s.active...),
		AlertHistory:    s.alertHistory.Newest(),
		Statistics:      copyStats(s.stats),
		Connected:       s.connected,
	}
}

// MonitoringState returns the current lifecycle state.
func (s *LiveSession) MonitoringState() model.MonitoringState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// update applies fn under the write lock and notifies observers if fn
// reports a change.
func (s *LiveSession) update(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.obs.notify()
	}
}

// SetMonitoringState replaces the lifecycle state.
func (s *LiveSession) SetMonitoringState(state model.MonitoringState) {
	s.update(func() bool {
		s.state = state
		return true
	})
}

// SetSession replaces the current session.
func (s *LiveSession) SetSession(info model.SessionInfo) {
	s.update(func() bool {
		s.session = copySession(&info)
		return true
	})
}

// ClearSession removes the current session.
func (s *LiveSession) ClearSession() {
	s.update(func() bool {
		s.session = nil
		return true
	})
}

// SetError replaces the error message.
func (s *LiveSession) SetError(msg string) {
	s.update(func() bool {
		s.err = msg
		return true
	})
}

// ClearError removes the error message.
func (s *LiveSession) ClearError() {
	s.SetError("")
}

// SetCurrentScore replaces the most recent score without touching history.
func (s *LiveSession) SetCurrentScore(score model.TrustScoreSnapshot) {
	s.update(func() bool {
		s.current = &score
		return true
	})
}

// AppendScore adds score to the bounded history.
func (s *LiveSession) AppendScore(score model.TrustScoreSnapshot) {
	s.update(func() bool {
		s.scores.Append(score)
		return true
	})
}

// RecordScore overwrites the current score and appends it to history in a
// single mutation.
func (s *LiveSession) RecordScore(score model.TrustScoreSnapshot) {
	s.update(func() bool {
		s.current = &score
		s.scores.Append(score)
		return true
	})
}

// SetActiveAlerts replaces the active alert list wholesale.
func (s *LiveSession) SetActiveAlerts(alerts []model.Alert) {
	s.update(func() bool {
		s.active = append([]model.Alert(nil), alerts...)
		return true
	})
}

// AddAlert prepends alert to the active list and to the alert history.
func (s *LiveSession) AddAlert(alert model.Alert) {
	s.update(func() bool {
		s.active = append([]model.Alert{alert}, s.active...)
		s.alertHistory.Append(alert)
		return true
	})
}

// DismissAlert marks the active alert with id as dismissed. Unknown or
// already dismissed ids leave the store untouched.
func (s *LiveSession) DismissAlert(id string) {
	s.update(func() bool {
		for i := range s.active {
			if s.active[i].ID == id && !s.active[i].Dismissed {
				next := append([]model.Alert(nil), s.active...)
				next[i].Dismissed = true
				s.active = next
				return true
			}
		}
		return false
	})
}

// ClearAlerts empties the active list. History is kept.
func (s *LiveSession) ClearAlerts() {
	s.update(func() bool {
		s.active = nil
		return true
	})
}

// SetStatistics replaces the statistics wholesale.
func (s *LiveSession) SetStatistics(stats model.SessionStatistics) {
	s.update(func() bool {
		s.stats = copyStats(stats)
		return true
	})
}

// SetConnected records whether the last pull reached the background.
func (s *LiveSession) SetConnected(connected bool) {
	s.update(func() bool {
		changed := s.connected != connected
		s.connected = connected
		return changed
	})
}

// ApplyState replaces monitoring state, session, error, current score,
// active alerts and statistics from a pulled snapshot, and marks the store
// connected. Histories are left alone; they only grow from pushes.
func (s *LiveSession) ApplyState(cs model.CurrentState) {
	s.update(func() bool {
		s.state = cs.Monitoring.State
		s.session = copySession(cs.Monitoring.CurrentSession)
		s.err = cs.Monitoring.Error
		s.current = copyScore(cs.TrustScore.Current)
		s.active = append([]model.Alert(nil), cs.Alerts.Active...)
		s.stats = copyStats(cs.Statistics)
		s.connected = true
		return true
	})
}

// Reset restores every field to its initial value.
func (s *LiveSession) Reset() {
	s.update(func() bool {
		s.state = model.StateIdle
		s.session = nil
		s.err = ""
		s.current = nil
		s.scores.Reset()
		s.active = nil
		s.alertHistory.Reset()
		s.stats = model.SessionStatistics{}
		s.connected = false
		return true
	})
}

func copySession(in *model.SessionInfo) *model.SessionInfo {
	if in == nil {
		return nil
	}
	out := *in
	if in.EndTime != nil {
		end := *in.EndTime
		out.EndTime = &end
	}
	return &out
}

func copyScore(in *model.TrustScoreSnapshot) *model.TrustScoreSnapshot {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func copyStats(in model.SessionStatistics) model.SessionStatistics {
	if in.CurrentSession != nil {
		cur := *in.CurrentSession
		in.CurrentSession = &cur
	}
	return in
}
