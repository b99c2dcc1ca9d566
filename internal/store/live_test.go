package store

import (
	"fmt"
	"testing"

	"github.com/jwulff/trustguard/internal/model"
)

func alert(id string, sev model.Severity) model.Alert {
	return model.Alert{
		ID:       id,
		Severity: sev,
		Category: model.CategoryVisual,
		Title:    "Alert " + id,
		Message:  "message",
	}
}

func TestNewLiveSession(t *testing.T) {
	s := NewLiveSession().Snapshot()
	if s.MonitoringState != model.StateIdle {
		t.Errorf("state = %s, want IDLE", s.MonitoringState)
	}
	if s.CurrentSession != nil || s.CurrentScore != nil {
		t.Error("new store should have no session or score")
	}
	if s.Connected {
		t.Error("new store should not be connected")
	}
}

func TestScoreHistoryBound(t *testing.T) {
	s := NewLiveSession()
	const n = 130
	for i := 0; i < n; i++ {
		s.RecordScore(model.TrustScoreSnapshot{Timestamp: int64(i), Overall: float64(i)})
	}

	snap := s.Snapshot()
	if len(snap.ScoreHistory) != ScoreHistoryCap {
		t.Fatalf("history len = %d, want %d", len(snap.ScoreHistory), ScoreHistoryCap)
	}
	for i, sc := range snap.ScoreHistory {
		if want := int64(n - ScoreHistoryCap + i); sc.Timestamp != want {
			t.Fatalf("history[%d].Timestamp = %d, want %d", i, sc.Timestamp, want)
		}
	}
	if snap.CurrentScore == nil || snap.CurrentScore.Timestamp != n-1 {
		t.Errorf("current = %+v", snap.CurrentScore)
	}
}

func TestSetCurrentScoreLeavesHistory(t *testing.T) {
	s := NewLiveSession()
	s.SetCurrentScore(model.TrustScoreSnapshot{Overall: 10})
	s.AppendScore(model.TrustScoreSnapshot{Overall: 20})

	snap := s.Snapshot()
	if snap.CurrentScore.Overall != 10 {
		t.Errorf("current = %v, want 10", snap.CurrentScore.Overall)
	}
	if len(snap.ScoreHistory) != 1 || snap.ScoreHistory[0].Overall != 20 {
		t.Errorf("history = %+v", snap.ScoreHistory)
	}
}

func TestAlertHistoryBound(t *testing.T) {
	s := NewLiveSession()
	for i := 0; i < AlertHistoryCap+1; i++ {
		s.AddAlert(alert(fmt.Sprintf("a%d", i), model.SeverityLow))
	}

	snap := s.Snapshot()
	if len(snap.AlertHistory) != AlertHistoryCap {
		t.Fatalf("alert history len = %d, want %d", len(snap.AlertHistory), AlertHistoryCap)
	}
	if snap.AlertHistory[0].ID != fmt.Sprintf("a%d", AlertHistoryCap) {
		t.Errorf("newest = %s", snap.AlertHistory[0].ID)
	}
	if last := snap.AlertHistory[len(snap.AlertHistory)-1].ID; last != "a1" {
		t.Errorf("oldest retained = %s, want a1", last)
	}
	if snap.ActiveAlerts[0].ID != snap.AlertHistory[0].ID {
		t.Error("active list should be newest first")
	}
}

func TestDismissAlert(t *testing.T) {
	s := NewLiveSession()
	s.AddAlert(alert("a1", model.SeverityHigh))
	s.AddAlert(alert("a2", model.SeverityLow))

	s.DismissAlert("a1")
	snap := s.Snapshot()
	if len(snap.ActiveAlerts) != 2 {
		t.Fatalf("active = %d, want 2", len(snap.ActiveAlerts))
	}
	for _, a := range snap.ActiveAlerts {
		if want := a.ID == "a1"; a.Dismissed != want {
			t.Errorf("%s dismissed = %v, want %v", a.ID, a.Dismissed, want)
		}
	}
	if snap.AlertHistory[1].Dismissed {
		t.Error("history records are not marked by dismiss")
	}
}

func TestDismissIdempotent(t *testing.T) {
	s := NewLiveSession()
	s.AddAlert(alert("a1", model.SeverityHigh))
	s.DismissAlert("a1")
	before := s.Snapshot().ActiveAlerts

	notified := 0
	s.Subscribe(func() { notified++ })

	s.DismissAlert("a1")
	s.DismissAlert("missing")

	after := s.Snapshot().ActiveAlerts
	if len(after) != len(before) {
		t.Fatalf("len changed: %d → %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("alert %d changed: %+v → %+v", i, before[i], after[i])
		}
	}
	if notified != 0 {
		t.Errorf("no-op dismiss notified %d times", notified)
	}
}

func TestClearAlertsKeepsHistory(t *testing.T) {
	s := NewLiveSession()
	s.AddAlert(alert("a1", model.SeverityHigh))
	s.ClearAlerts()

	snap := s.Snapshot()
	if len(snap.ActiveAlerts) != 0 {
		t.Errorf("active = %d, want 0", len(snap.ActiveAlerts))
	}
	if len(snap.AlertHistory) != 1 {
		t.Errorf("history = %d, want 1", len(snap.AlertHistory))
	}
}

func TestApplyState(t *testing.T) {
	s := NewLiveSession()
	s.RecordScore(model.TrustScoreSnapshot{Overall: 50})
	s.AddAlert(alert("pushed", model.SeverityLow))

	cs := model.CurrentState{
		Monitoring: model.MonitoringSnapshot{
			State:          model.StateActive,
			CurrentSession: &model.SessionInfo{ID: "sess-1", Platform: model.PlatformZoom},
		},
		TrustScore: model.TrustScoreBlock{
			Current: &model.TrustScoreSnapshot{Overall: 91},
			History: []model.TrustScoreSnapshot{{Overall: 1}, {Overall: 2}},
		},
		Alerts: model.AlertsBlock{
			Active: []model.Alert{alert("pulled", model.SeverityCritical)},
		},
		Statistics: model.SessionStatistics{TotalSessions: 4},
	}
	s.ApplyState(cs)

	snap := s.Snapshot()
	if snap.MonitoringState != model.StateActive {
		t.Errorf("state = %s", snap.MonitoringState)
	}
	if snap.CurrentSession == nil || snap.CurrentSession.ID != "sess-1" {
		t.Errorf("session = %+v", snap.CurrentSession)
	}
	if snap.CurrentScore.Overall != 91 {
		t.Errorf("current = %v", snap.CurrentScore.Overall)
	}
	if len(snap.ScoreHistory) != 1 || snap.ScoreHistory[0].Overall != 50 {
		t.Errorf("pull must not replace history, got %+v", snap.ScoreHistory)
	}
	if len(snap.ActiveAlerts) != 1 || snap.ActiveAlerts[0].ID != "pulled" {
		t.Errorf("active = %+v", snap.ActiveAlerts)
	}
	if snap.Statistics.TotalSessions != 4 {
		t.Errorf("stats = %+v", snap.Statistics)
	}
	if !snap.Connected {
		t.Error("apply should mark connected")
	}

	// The store keeps its own copy of the pulled session.
	cs.Monitoring.CurrentSession.ID = "mutated"
	if s.Snapshot().CurrentSession.ID != "sess-1" {
		t.Error("store aliases caller's session")
	}
}

func TestStatisticsReplacedWholesale(t *testing.T) {
	s := NewLiveSession()
	s.SetStatistics(model.SessionStatistics{
		TotalSessions:  2,
		CurrentSession: &model.CurrentSessionStats{FramesAnalyzed: 10},
	})
	s.SetStatistics(model.SessionStatistics{TotalSessions: 3})

	snap := s.Snapshot()
	if snap.Statistics.TotalSessions != 3 || snap.Statistics.CurrentSession != nil {
		t.Errorf("stats = %+v", snap.Statistics)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewLiveSession()
	s.SetSession(model.SessionInfo{ID: "sess-1"})
	s.SetError("boom")
	if snap := s.Snapshot(); snap.CurrentSession == nil || snap.Error != "boom" {
		t.Fatalf("snap = %+v", snap)
	}

	s.ClearSession()
	s.ClearError()
	if snap := s.Snapshot(); snap.CurrentSession != nil || snap.Error != "" {
		t.Errorf("snap = %+v", snap)
	}
}

func TestReset(t *testing.T) {
	s := NewLiveSession()
	s.SetMonitoringState(model.StateActive)
	s.SetSession(model.SessionInfo{ID: "sess-1"})
	s.RecordScore(model.TrustScoreSnapshot{Overall: 1})
	s.AddAlert(alert("a1", model.SeverityHigh))
	s.SetConnected(true)

	s.Reset()
	snap := s.Snapshot()
	if snap.MonitoringState != model.StateIdle || snap.CurrentSession != nil ||
		snap.CurrentScore != nil || len(snap.ScoreHistory) != 0 ||
		len(snap.ActiveAlerts) != 0 || len(snap.AlertHistory) != 0 || snap.Connected {
		t.Errorf("reset left state behind: %+v", snap)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := NewLiveSession()
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	s.SetMonitoringState(model.StateActive)
	s.SetConnected(true)
	s.SetConnected(true) // unchanged, no notification
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	unsubscribe()
	unsubscribe()
	s.SetMonitoringState(model.StateIdle)
	if calls != 2 {
		t.Errorf("calls after unsubscribe = %d", calls)
	}
}

func TestObserverMayReadStore(t *testing.T) {
	s := NewLiveSession()
	var seen model.MonitoringState
	s.Subscribe(func() { seen = s.MonitoringState() })

	s.SetMonitoringState(model.StatePaused)
	if seen != model.StatePaused {
		t.Errorf("observer saw %s", seen)
	}
}
