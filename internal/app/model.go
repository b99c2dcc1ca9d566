package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/jwulff/trustguard/internal/analytics"
	"github.com/jwulff/trustguard/internal/model"
	"github.com/jwulff/trustguard/internal/store"
	"github.com/jwulff/trustguard/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Actions are the controller operations the popup can trigger.
type Actions interface {
	StartMonitoring(ctx context.Context) error
	StopMonitoring(ctx context.Context)
	Refresh(ctx context.Context) error
	DismissAlert(id string)
	ClearAlerts(ctx context.Context) error
	SaveSettings(ctx context.Context) ([]analytics.Warning, error)
	ToggleTheme(ctx context.Context) (store.Theme, error)
}

// thresholdKeys is the order thresholds are listed and selected in.
var thresholdKeys = []store.ThresholdKey{store.ThresholdSafe, store.ThresholdCaution, store.ThresholdDanger}

const noticeTimeout = 5 * time.Second

// Model is the root bubbletea model for the popup. It renders cached store
// snapshots and refreshes them on StoreChangedMsg.
type Model struct {
	ctx      context.Context
	actions  Actions
	live     *store.LiveSession
	settings *store.Settings
	prefs    *store.Preferences

	// Snapshots
	liveSnap     store.LiveState
	settingsSnap store.SettingsState
	prefsSnap    store.PrefsState
	styles       ui.Styles
	dark         bool

	// Selection
	selectedAlert     int
	selectedThreshold int

	// Notices
	notice      string
	noticeError bool
	noticeSeq   int

	width  int
	height int
}

// New creates a model over the stores. ctx bounds every command it issues.
func New(ctx context.Context, actions Actions, live *store.LiveSession, settings *store.Settings, prefs *store.Preferences) Model {
	m := Model{
		ctx:      ctx,
		actions:  actions,
		live:     live,
		settings: settings,
		prefs:    prefs,
	}
	m.refresh()
	return m
}

// Init has nothing to start; the controller is already running.
func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) refresh() {
	m.liveSnap = m.live.Snapshot()
	m.settingsSnap = m.settings.Snapshot()
	m.prefsSnap = m.prefs.Snapshot()
	m.dark = m.prefs.EffectiveTheme() == store.ThemeDark
	m.styles = ui.ForTheme(m.dark)

	if n := len(m.liveSnap.ActiveAlerts); m.selectedAlert >= n {
		m.selectedAlert = max(0, n-1)
	}
}

func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeError = isErr
	seq := m.noticeSeq
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return ClearNoticeMsg{seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StoreChangedMsg:
		m.refresh()
		return m, nil

	case CommandDoneMsg:
		// Start failures already show through the live store's error.
		if msg.Err != nil && msg.Command != "start" {
			return m, m.setNotice(fmt.Sprintf("%s failed: %v", msg.Command, msg.Err), true)
		}
		return m, nil

	case SettingsSavedMsg:
		if msg.Err != nil {
			return m, m.setNotice("Save failed: "+msg.Err.Error(), true)
		}
		if len(msg.Warnings) > 0 {
			return m, m.setNotice(fmt.Sprintf("Saved with %d warning(s)", len(msg.Warnings)), false)
		}
		return m, m.setNotice("Settings saved", false)

	case ThemeChangedMsg:
		m.refresh()
		if msg.Err != nil {
			return m, m.setNotice("Theme not saved: "+msg.Err.Error(), true)
		}
		return m, nil

	case ClearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
			m.noticeError = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return CommandDoneMsg{Command: "start", Err: m.actions.StartMonitoring(m.ctx)}
	}
}

func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		m.actions.StopMonitoring(m.ctx)
		return CommandDoneMsg{Command: "stop"}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return CommandDoneMsg{Command: "refresh", Err: m.actions.Refresh(m.ctx)}
	}
}

func (m Model) clearAlertsCmd() tea.Cmd {
	return func() tea.Msg {
		return CommandDoneMsg{Command: "clear alerts", Err: m.actions.ClearAlerts(m.ctx)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	return func() tea.Msg {
		warnings, err := m.actions.SaveSettings(m.ctx)
		return SettingsSavedMsg{Warnings: warnings, Err: err}
	}
}

func (m Model) toggleThemeCmd() tea.Cmd {
	return func() tea.Msg {
		theme, err := m.actions.ToggleTheme(m.ctx)
		return ThemeChangedMsg{Theme: theme, Err: err}
	}
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit

	case KeySpace:
		switch m.liveSnap.MonitoringState {
		case model.StateActive, model.StatePaused:
			return m, m.stopCmd()
		case model.StateInitializing:
			return m, nil
		}
		return m, m.startCmd()

	case KeyTab:
		m.prefs.NextView()
		m.refresh()
		return m, nil

	case KeyTheme:
		return m, m.toggleThemeCmd()

	case KeySave:
		return m, m.saveCmd()

	case KeyClearAll:
		if len(m.liveSnap.ActiveAlerts) == 0 {
			return m, nil
		}
		return m, m.clearAlertsCmd()
	}

	switch m.prefsSnap.View {
	case store.ViewAlerts:
		return m.handleAlertsKey(msg)
	case store.ViewSettings:
		return m.handleSettingsKey(msg)
	}
	if msg.String() == KeyReset {
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) handleAlertsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.liveSnap.ActiveAlerts)
	switch msg.String() {
	case KeyJ, KeyDown:
		if m.selectedAlert < n-1 {
			m.selectedAlert++
		}
	case KeyK, KeyUp:
		if m.selectedAlert > 0 {
			m.selectedAlert--
		}
	case KeyDismiss:
		if m.selectedAlert < n {
			m.actions.DismissAlert(m.liveSnap.ActiveAlerts[m.selectedAlert].ID)
			m.refresh()
		}
	case KeyReset:
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyJ, KeyDown:
		if m.selectedThreshold < len(thresholdKeys)-1 {
			m.selectedThreshold++
		}
	case KeyK, KeyUp:
		if m.selectedThreshold > 0 {
			m.selectedThreshold--
		}
	case KeyLeft, KeyH:
		m.adjustThreshold(-1)
	case KeyRight, KeyL:
		m.adjustThreshold(1)
	case KeyBigStepDown:
		m.adjustThreshold(-5)
	case KeyBigStepUp:
		m.adjustThreshold(5)
	case KeyReset:
		m.settings.ResetToDefaults()
		m.refresh()
	}
	return m, nil
}

// adjustThreshold moves the selected threshold by delta, held inside the
// range its neighbours allow.
func (m *Model) adjustThreshold(delta int) {
	th := m.settingsSnap.Settings.TrustThresholds
	bounds := analytics.ThresholdBounds(th)
	key := thresholdKeys[m.selectedThreshold]

	var cur int
	var r analytics.Range
	switch key {
	case store.ThresholdSafe:
		cur, r = th.Safe, bounds.Safe
	case store.ThresholdCaution:
		cur, r = th.Caution, bounds.Caution
	case store.ThresholdDanger:
		cur, r = th.Danger, bounds.Danger
	}

	next := r.Clamp(cur + delta)
	if next == cur {
		return
	}
	if err := m.settings.UpdateThreshold(key, next); err != nil {
		return
	}
	m.refresh()
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 16
	}
	// Reserve: header(1) + tabs(1) + dividers(2) + notice(1) + footer(1)
	return max(5, m.height-6)
}

// View renders the full popup.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	s := m.styles
	divider := s.Divider.Render(strings.Repeat("─", m.width))

	var body []string
	switch m.prefsSnap.View {
	case store.ViewAlerts:
		body = m.renderAlerts()
	case store.ViewSettings:
		body = m.renderSettings()
	case store.ViewAnalytics:
		body = m.renderAnalytics()
	default:
		body = m.renderDashboard()
	}

	h := m.contentHeight()
	for len(body) < h {
		body = append(body, "")
	}
	if len(body) > h {
		body = body[:h]
	}
	for i, l := range body {
		body[i] = ansi.Truncate(l, m.width, "…")
	}

	sections := []string{
		m.renderHeader(),
		m.renderTabs(),
		divider,
		strings.Join(body, "\n"),
		divider,
		m.renderNoticeBar(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	s := m.styles
	title := s.Title.Render("TRUSTGUARD")

	var state string
	switch m.liveSnap.MonitoringState {
	case model.StateActive:
		state = s.ActiveDot.Render("● MONITORING")
	case model.StateInitializing:
		state = s.Notice.Render("◌ STARTING")
	case model.StatePaused:
		state = s.Notice.Render("‖ PAUSED")
	case model.StateError:
		state = s.Error.Render("✕ ERROR")
	default:
		state = s.IdleDot.Render("○ IDLE")
	}

	var conn string
	if m.liveSnap.Connected {
		conn = s.Connected.Render("● connected")
	} else {
		conn = s.Unconnected.Render("○ offline")
	}

	theme := s.Dim.Render("theme " + string(m.prefsSnap.Theme))
	return title + "  " + state + "  " + conn + "  " + theme
}

func (m Model) renderTabs() string {
	s := m.styles
	var tabs []string
	for _, v := range store.Views {
		label := strings.ToUpper(string(v))
		if v == store.ViewAlerts {
			if n := analytics.CountSeverities(m.liveSnap.ActiveAlerts).Total; n > 0 {
				label += fmt.Sprintf(" (%d)", n)
			}
		}
		if v == m.prefsSnap.View {
			tabs = append(tabs, s.TabActive.Render(label))
		} else {
			tabs = append(tabs, s.Tab.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) row(label, value string) string {
	return m.styles.Label.Render(padCells(label, 12)) + value
}

func (m Model) renderDashboard() []string {
	s := m.styles
	snap := m.liveSnap
	var lines []string

	lines = append(lines, m.row("State", s.Value.Render(string(snap.MonitoringState))))

	if sess := snap.CurrentSession; sess != nil {
		started := time.UnixMilli(sess.StartTime).Format("15:04:05")
		lines = append(lines, m.row("Session", s.Value.Render(fmt.Sprintf("%s · %d participants · started %s",
			sess.Platform, sess.ParticipantCount, started))))
		if sess.URL != "" {
			lines = append(lines, m.row("", s.Dim.Render(sess.URL)))
		}
	} else {
		lines = append(lines, m.row("Session", s.Dim.Render("none")))
	}

	if score := snap.CurrentScore; score != nil {
		level := score.Level
		if level == "" || level == model.LevelUnknown {
			level = analytics.LevelForScore(score.Overall, m.settingsSnap.Settings.TrustThresholds)
		}
		lines = append(lines, m.row("Trust", s.Level(level).Render(fmt.Sprintf("%5.1f  %s", score.Overall, strings.ToUpper(string(level))))+
			"  "+s.Meter(score.Overall, 20, level)))
		lines = append(lines, m.row("", s.Dim.Render(fmt.Sprintf("visual %.0f  audio %.0f  behavioral %.0f  confidence %.2f",
			score.Visual, score.Audio, score.Behavioral, score.Confidence))))
	} else {
		lines = append(lines, m.row("Trust", s.Dim.Render("no score yet")))
	}

	lines = append(lines, m.row("Trend", m.renderTrend()))

	counts := analytics.CountSeverities(snap.ActiveAlerts)
	lines = append(lines, m.row("Alerts", fmt.Sprintf("%d active · %s · %s · %s · %s",
		counts.Total,
		s.Severity(model.SeverityCritical).Render(fmt.Sprintf("critical %d", counts.Critical)),
		s.Severity(model.SeverityHigh).Render(fmt.Sprintf("high %d", counts.High)),
		s.Severity(model.SeverityMedium).Render(fmt.Sprintf("medium %d", counts.Medium)),
		s.Severity(model.SeverityLow).Render(fmt.Sprintf("low %d", counts.Low)),
	)))

	if snap.MonitoringState == model.StateIdle && snap.CurrentScore == nil {
		lines = append(lines, "", s.Dim.Render("  Press Space to start monitoring the active tab"))
	}
	return lines
}

func (m Model) renderTrend() string {
	s := m.styles
	t := analytics.Trend(m.liveSnap.ScoreHistory)
	switch t.Direction {
	case analytics.Improving:
		return s.Level(model.LevelSafe).Render(fmt.Sprintf("↑ improving (%+.1f)", t.Change))
	case analytics.Declining:
		return s.Level(model.LevelDanger).Render(fmt.Sprintf("↓ declining (%+.1f)", t.Change))
	}
	return s.Dim.Render(fmt.Sprintf("→ stable (%+.1f)", t.Change))
}

func (m Model) renderAlerts() []string {
	s := m.styles
	alerts := m.liveSnap.ActiveAlerts
	if len(alerts) == 0 {
		return []string{"", s.Dim.Render("  No active alerts")}
	}

	var lines []string
	for i, a := range alerts {
		marker := "  "
		if i == m.selectedAlert {
			marker = s.Selected.Render("> ")
		}
		sev := s.Severity(a.Severity).Render(padCells(strings.ToUpper(string(a.Severity)), 9))
		ts := s.Dim.Render(time.UnixMilli(a.Timestamp).Format("15:04:05"))
		title := a.Title
		if a.Dismissed {
			title = s.Dim.Render(title + " (dismissed)")
		} else if i == m.selectedAlert {
			title = s.Selected.Render(title)
		}
		lines = append(lines, marker+ts+" "+sev+" "+title)

		if i == m.selectedAlert {
			for _, wl := range wrapLines(a.Message, max(10, m.width-6)) {
				lines = append(lines, s.Dim.Render("    "+wl))
			}
			if a.Details != "" {
				for _, wl := range wrapLines(a.Details, max(10, m.width-6)) {
					lines = append(lines, s.Dim.Render("    "+wl))
				}
			}
		}
	}
	return lines
}

func (m Model) renderSettings() []string {
	s := m.styles
	st := m.settingsSnap.Settings
	var lines []string

	lines = append(lines, m.row("Model", s.Value.Render(st.Model)))
	lines = append(lines, m.row("API key", maskKey(st.APIKey, s)))
	lines = append(lines, m.row("Alerts", fmt.Sprintf("notifications %s  sound %s",
		onOff(st.EnableNotifications), onOff(st.EnableSoundAlerts))))

	lines = append(lines, s.Label.Render("Thresholds"))
	bounds := analytics.ThresholdBounds(st.TrustThresholds)
	values := []int{st.TrustThresholds.Safe, st.TrustThresholds.Caution, st.TrustThresholds.Danger}
	ranges := []analytics.Range{bounds.Safe, bounds.Caution, bounds.Danger}
	for i, key := range thresholdKeys {
		label := padCells(strings.ToUpper(string(key[:1]))+string(key[1:]), 9)
		line := fmt.Sprintf("%s %3d  [%d–%d]", label, values[i], ranges[i].Min, ranges[i].Max)
		if i == m.selectedThreshold {
			lines = append(lines, s.Selected.Render("> "+line))
		} else {
			lines = append(lines, "  "+line)
		}
	}

	cs := st.CaptureSettings
	lines = append(lines, m.row("Capture", fmt.Sprintf("%d fps · %d ms audio · %d concurrent",
		cs.VideoFPS, cs.AudioDuration, cs.MaxConcurrentRequests)))
	lines = append(lines, m.row("Developer", fmt.Sprintf("telemetry %s  debug %s",
		onOff(st.EnableTelemetry), onOff(st.DebugMode))))

	switch {
	case m.settingsSnap.IsLoading:
		lines = append(lines, s.Dim.Render("Loading..."))
	case m.settingsSnap.IsSaving:
		lines = append(lines, s.Dim.Render("Saving..."))
	case m.settingsSnap.HasUnsavedChanges:
		lines = append(lines, s.Notice.Render("● unsaved changes"))
	}

	for _, w := range analytics.ValidateSettings(st) {
		lines = append(lines, s.Notice.Render("! "+w.Message))
	}
	return lines
}

func (m Model) renderAnalytics() []string {
	s := m.styles
	snap := m.liveSnap
	var lines []string

	sum := analytics.ScoreSummary(snap.ScoreHistory)
	lines = append(lines, m.row("History", fmt.Sprintf("%d of %d samples", sum.Samples, store.ScoreHistoryCap)))
	if sum.Samples > 0 {
		values := make([]float64, len(snap.ScoreHistory))
		for i, sc := range snap.ScoreHistory {
			values[i] = sc.Overall
		}
		if len(values) > m.width-14 && m.width > 14 {
			values = values[len(values)-(m.width-14):]
		}
		lines = append(lines, m.row("", s.Value.Render(ui.Sparkline(values))))
		lines = append(lines, m.row("Score", fmt.Sprintf("avg %.1f  min %.1f  max %.1f", sum.Average, sum.Min, sum.Max)))
	}
	lines = append(lines, m.row("Trend", m.renderTrend()))

	stats := snap.Statistics
	if cur := stats.CurrentSession; cur != nil {
		lines = append(lines, m.row("Session", fmt.Sprintf("%s · frames %d · audio %d · transcripts %d · alerts %d",
			formatMillis(cur.Duration), cur.FramesAnalyzed, cur.AudioChunksAnalyzed, cur.TranscriptsProcessed, cur.AlertsTriggered)))
	}
	lines = append(lines, m.row("All time", fmt.Sprintf("%d sessions · %s · frames %d · alerts %d",
		stats.TotalSessions, formatMillis(stats.AllTime.TotalDuration),
		stats.AllTime.TotalFramesAnalyzed, stats.AllTime.TotalAlertsTriggered)))
	lines = append(lines, m.row("Alert log", fmt.Sprintf("%d of %d kept", len(snap.AlertHistory), store.AlertHistoryCap)))
	return lines
}

func (m Model) renderNoticeBar() string {
	s := m.styles
	switch {
	case m.notice != "" && m.noticeError:
		return s.Error.Render("Error: ") + s.ErrorText.Render(m.notice)
	case m.notice != "":
		return s.Notice.Render(m.notice)
	case m.liveSnap.Error != "":
		return s.Error.Render("Error: ") + s.ErrorText.Render(m.liveSnap.Error)
	}
	return ""
}

func (m Model) renderFooter() string {
	s := m.styles
	key := func(k, desc string) string {
		return s.FooterKey.Render(k) + s.FooterDesc.Render(" "+desc)
	}

	var parts []string
	switch m.liveSnap.MonitoringState {
	case model.StateActive, model.StatePaused:
		parts = append(parts, key("Space", "Stop"))
	case model.StateInitializing:
	default:
		parts = append(parts, key("Space", "Start"))
	}
	parts = append(parts, key("Tab", "View"))

	switch m.prefsSnap.View {
	case store.ViewAlerts:
		parts = append(parts, key("j/k", "Select"), key("d", "Dismiss"), key("C", "Clear all"))
	case store.ViewSettings:
		parts = append(parts, key("j/k", "Select"), key("←/→", "Adjust"), key("r", "Defaults"), key("s", "Save"))
	default:
		parts = append(parts, key("r", "Refresh"))
	}

	parts = append(parts, key("t", "Theme"), key("q", "Quit"))
	return strings.Join(parts, "  ")
}

// Helpers

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func maskKey(key string, s ui.Styles) string {
	if key == "" {
		return s.Dim.Render("not set")
	}
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", min(12, len(key)-4)) + key[len(key)-4:]
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

// padCells pads s with spaces to width terminal cells.
func padCells(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// wrapLines word-wraps text to width cells, breaking words that do not fit.
func wrapLines(text string, width int) []string {
	lines := strings.Split(ansi.Wrap(strings.TrimSpace(text), max(1, width), ""), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}
