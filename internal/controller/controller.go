// Package controller keeps the popup's stores in step with the extension. It
// owns the push listener and the poll loop, turns inbound messages into store
// mutations, and sends the popup's commands.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jwulff/trustguard/internal/analytics"
	"github.com/jwulff/trustguard/internal/host"
	"github.com/jwulff/trustguard/internal/model"
	"github.com/jwulff/trustguard/internal/protocol"
	"github.com/jwulff/trustguard/internal/store"
)

// DefaultPollInterval is the pull interval while monitoring is active.
const DefaultPollInterval = 2 * time.Second

// ErrMsgNoActiveTab is the error shown when monitoring cannot find a tab.
const ErrMsgNoActiveTab = "No active tab found"

// Host is the message-passing substrate: the focused tab, delivery to a tab
// or to the background, and the push feed.
type Host interface {
	ActiveTab(ctx context.Context) (host.Tab, error)
	SendToTab(ctx context.Context, tabID int, msg protocol.Message) (protocol.Reply, error)
	SendToRuntime(ctx context.Context, msg protocol.Message) (protocol.Reply, error)
	OnMessage(fn func(protocol.Message)) (remove func())
}

// KV is the durable storage the controller loads from and saves to.
type KV interface {
	LoadSettings(ctx context.Context) (model.ExtensionSettings, bool, error)
	SaveSettings(ctx context.Context, settings model.ExtensionSettings) error
	LoadTheme(ctx context.Context) (string, error)
	SaveTheme(ctx context.Context, theme string) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Controller is the only writer of the live session store. Beyond its
// collaborators it holds just the listener registration and the poll loop.
type Controller struct {
	host     Host
	live     *store.LiveSession
	settings *store.Settings
	prefs    *store.Preferences
	kv       KV
	logger   *zap.Logger
	metrics  *Metrics
	interval time.Duration

	// transition orders local monitoring state changes against poll results,
	// so a loop cancelled by a transition never applies its last pull.
	transition sync.Mutex

	mu             sync.Mutex
	base           context.Context
	removeListener func()
	unsubscribe    func()
	stopPoll       context.CancelFunc
	pollDone       chan struct{}
}

// New returns a controller over the given stores. Nothing happens until
// Start is called.
func New(h Host, live *store.LiveSession, settings *store.Settings, prefs *store.Preferences, kv KV, opts ...Option) *Controller {
	c := &Controller{
		host:     h,
		live:     live,
		settings: settings,
		prefs:    prefs,
		kv:       kv,
		logger:   zap.NewNop(),
		interval: DefaultPollInterval,
		base:     context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	c.logger = c.logger.With(zap.String("mod", "controller"))
	return c
}

// Start registers the push listener, replacing any earlier registration,
// loads durable settings and theme, hydrates the live store with one pull,
// and from then on runs the poll loop exactly while monitoring is ACTIVE.
// Poll loops live no longer than ctx. Start never fails; failures while
// hydrating are logged and reflected in the stores.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.base = ctx
	if c.removeListener != nil {
		c.removeListener()
	}
	c.removeListener = c.host.OnMessage(c.handleMessage)
	if c.unsubscribe == nil {
		c.unsubscribe = c.live.Subscribe(c.syncPolling)
	}
	c.mu.Unlock()

	if err := c.LoadSettings(ctx); err != nil {
		c.logger.Warn("load settings", zap.Error(err))
	}
	if err := c.loadTheme(ctx); err != nil {
		c.logger.Warn("load theme", zap.Error(err))
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Info("initial state pull failed", zap.Error(err))
	}
	c.syncPolling()
}

// Close deregisters the listener and stops polling.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.removeListener != nil {
		c.removeListener()
		c.removeListener = nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.stopPollingLocked()
	c.mu.Unlock()
}

// PollDone returns a channel closed when the current poll loop exits, or nil
// when no loop is running.
func (c *Controller) PollDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollDone
}

// Polling reports whether a poll loop is running.
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopPoll != nil
}

// syncPolling starts or stops the poll loop to match the monitoring state.
// It runs after every live store change, whoever made it. The state is read
// under c.mu so the last caller to take it always sees the latest state.
func (c *Controller) syncPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := c.live.MonitoringState() == model.StateActive
	switch {
	case active && c.stopPoll == nil:
		ctx, cancel := context.WithCancel(c.base)
		done := make(chan struct{})
		c.stopPoll = cancel
		c.pollDone = done
		c.metrics.PollLoops.Inc()
		c.logger.Debug("poll loop started", zap.Duration("interval", c.interval))
		go c.poll(ctx, done)
	case !active && c.stopPoll != nil:
		c.stopPollingLocked()
		c.logger.Debug("poll loop stopped")
	}
}

// stopPollingLocked cancels the loop without waiting for it: it may be the
// loop itself that moved the state out of ACTIVE.
func (c *Controller) stopPollingLocked() {
	if c.stopPoll == nil {
		return
	}
	c.stopPoll()
	c.stopPoll = nil
	c.pollDone = nil
}

func (c *Controller) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.metrics.PollLoops.Dec()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		cs, err := c.pull(ctx)
		c.transition.Lock()
		if ctx.Err() != nil {
			c.transition.Unlock()
			c.metrics.Pulls.WithLabelValues("discarded").Inc()
			return
		}
		c.applyPull(cs, err)
		c.transition.Unlock()
	}
}

// Refresh pulls the full state once. On success the snapshot replaces the
// live fields it carries; on any failure only the connectivity flag changes.
func (c *Controller) Refresh(ctx context.Context) error {
	cs, err := c.pull(ctx)
	c.transition.Lock()
	c.applyPull(cs, err)
	c.transition.Unlock()
	return err
}

func (c *Controller) pull(ctx context.Context) (model.CurrentState, error) {
	msg, err := protocol.New(protocol.GetCurrentState, nil)
	if err != nil {
		return model.CurrentState{}, err
	}
	reply, err := c.host.SendToRuntime(ctx, msg)
	if err != nil {
		return model.CurrentState{}, fmt.Errorf("pull state: %w", err)
	}
	var cs model.CurrentState
	if err := protocol.DecodeReply(reply, &cs); err != nil {
		return model.CurrentState{}, fmt.Errorf("pull state: %w", err)
	}
	if err := cs.Validate(); err != nil {
		return model.CurrentState{}, fmt.Errorf("pull state: %w", err)
	}
	return cs, nil
}

func (c *Controller) applyPull(cs model.CurrentState, err error) {
	c.metrics.Pulls.WithLabelValues(result(err)).Inc()
	if err != nil {
		c.logger.Debug("pull failed", zap.Error(err))
		c.live.SetConnected(false)
		return
	}
	c.live.ApplyState(cs)
}

// StartMonitoring asks the focused tab to begin analysis. Delivery of the
// command is taken as success; the producer corrects the state later by push
// or poll if it disagrees.
func (c *Controller) StartMonitoring(ctx context.Context) error {
	c.transition.Lock()
	c.live.SetMonitoringState(model.StateInitializing)
	c.transition.Unlock()

	err := c.startOnActiveTab(ctx)
	c.metrics.Commands.WithLabelValues(string(protocol.StartMonitoring), result(err)).Inc()

	c.transition.Lock()
	defer c.transition.Unlock()
	if err != nil {
		c.logger.Warn("start monitoring", zap.Error(err))
		c.live.ClearSession()
		c.live.SetError(errorMessage(err))
		c.live.SetMonitoringState(model.StateError)
		return err
	}
	c.live.ClearError()
	c.live.SetMonitoringState(model.StateActive)
	return nil
}

func (c *Controller) startOnActiveTab(ctx context.Context) error {
	tab, err := c.host.ActiveTab(ctx)
	if err != nil {
		return err
	}
	msg, err := protocol.New(protocol.StartMonitoring, nil)
	if err != nil {
		return err
	}
	reply, err := c.host.SendToTab(ctx, tab.ID, msg)
	if err != nil {
		return err
	}
	return reply.Err()
}

func errorMessage(err error) string {
	if errors.Is(err, host.ErrNoActiveTab) {
		return ErrMsgNoActiveTab
	}
	return "Failed to start monitoring: " + err.Error()
}

// StopMonitoring asks the focused tab, if there is one, to stop, and always
// returns the store to IDLE with no session. Delivery failures are logged.
func (c *Controller) StopMonitoring(ctx context.Context) {
	if err := c.stopOnActiveTab(ctx); err != nil {
		c.logger.Info("stop monitoring", zap.Error(err))
	}

	c.transition.Lock()
	defer c.transition.Unlock()
	c.live.SetMonitoringState(model.StateIdle)
	c.live.ClearSession()
}

func (c *Controller) stopOnActiveTab(ctx context.Context) error {
	tab, err := c.host.ActiveTab(ctx)
	if errors.Is(err, host.ErrNoActiveTab) {
		return nil
	}
	if err != nil {
		return err
	}
	msg, err := protocol.New(protocol.StopMonitoring, nil)
	if err != nil {
		return err
	}
	reply, err := c.host.SendToTab(ctx, tab.ID, msg)
	if err == nil {
		err = reply.Err()
	}
	c.metrics.Commands.WithLabelValues(string(protocol.StopMonitoring), result(err)).Inc()
	return err
}

// handleMessage applies one pushed message. Unknown kinds and payloads that
// do not decode are dropped.
func (c *Controller) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TrustScoreUpdate:
		var score model.TrustScoreSnapshot
		if err := protocol.DecodePayload(msg, &score); err != nil {
			c.ignore(msg, err)
			return
		}
		c.live.RecordScore(score)
	case protocol.AlertTriggered:
		var alert model.Alert
		if err := protocol.DecodePayload(msg, &alert); err != nil {
			c.ignore(msg, err)
			return
		}
		c.live.AddAlert(alert)
	case protocol.SessionStatsUpdate:
		var stats model.SessionStatistics
		if err := protocol.DecodePayload(msg, &stats); err != nil {
			c.ignore(msg, err)
			return
		}
		c.live.SetStatistics(stats)
	default:
		c.metrics.Pushes.WithLabelValues("unknown").Inc()
		c.logger.Debug("ignoring message", zap.String("type", string(msg.Type)))
		return
	}
	c.metrics.Pushes.WithLabelValues(string(msg.Type)).Inc()
}

func (c *Controller) ignore(msg protocol.Message, err error) {
	c.metrics.Pushes.WithLabelValues("unknown").Inc()
	c.logger.Debug("ignoring message", zap.String("type", string(msg.Type)), zap.Error(err))
}

// DismissAlert marks one active alert dismissed. It never leaves the popup.
func (c *Controller) DismissAlert(id string) {
	c.live.DismissAlert(id)
}

// ClearAlerts asks the background to clear all alerts. The local active list
// is emptied only once the request has been delivered.
func (c *Controller) ClearAlerts(ctx context.Context) error {
	err := c.clearAlerts(ctx)
	c.metrics.Commands.WithLabelValues(string(protocol.ClearAlerts), result(err)).Inc()
	if err != nil {
		c.logger.Warn("clear alerts", zap.Error(err))
		return err
	}
	c.live.ClearAlerts()
	return nil
}

func (c *Controller) clearAlerts(ctx context.Context) error {
	msg, err := protocol.New(protocol.ClearAlerts, nil)
	if err != nil {
		return err
	}
	reply, err := c.host.SendToRuntime(ctx, msg)
	if err != nil {
		return err
	}
	return reply.Err()
}

// LoadSettings replaces the settings store with the durable record. When
// nothing was ever saved the store keeps its defaults.
func (c *Controller) LoadSettings(ctx context.Context) error {
	c.settings.SetLoading(true)
	defer c.settings.SetLoading(false)

	settings, ok, err := c.kv.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if ok {
		c.settings.SetSettings(settings)
	}
	return nil
}

// SaveSettings persists the current settings and tells the background about
// them. Validation is advisory: the warnings are returned and the record is
// saved as it is. The dirty flag clears once the durable write succeeds; a
// failed UPDATE_SETTINGS is only logged.
func (c *Controller) SaveSettings(ctx context.Context) ([]analytics.Warning, error) {
	settings := c.settings.Snapshot().Settings
	warnings := analytics.ValidateSettings(settings)
	for _, w := range warnings {
		c.logger.Info("settings warning", zap.String("field", w.Field), zap.String("message", w.Message))
	}

	c.settings.SetSaving(true)
	defer c.settings.SetSaving(false)

	if err := c.kv.SaveSettings(ctx, settings); err != nil {
		return warnings, fmt.Errorf("save settings: %w", err)
	}
	c.settings.MarkSaved(settings)

	err := c.sendSettings(ctx, settings)
	c.metrics.Commands.WithLabelValues(string(protocol.UpdateSettings), result(err)).Inc()
	if err != nil {
		c.logger.Warn("update settings", zap.Error(err))
	}
	return warnings, nil
}

func (c *Controller) sendSettings(ctx context.Context, settings model.ExtensionSettings) error {
	msg, err := protocol.New(protocol.UpdateSettings, settings)
	if err != nil {
		return err
	}
	reply, err := c.host.SendToRuntime(ctx, msg)
	if err != nil {
		return err
	}
	return reply.Err()
}

func (c *Controller) loadTheme(ctx context.Context) error {
	name, err := c.kv.LoadTheme(ctx)
	if err != nil {
		return err
	}
	if name != "" {
		c.prefs.SetTheme(store.ParseTheme(name))
	}
	return nil
}

// ToggleTheme advances the theme and persists the choice.
func (c *Controller) ToggleTheme(ctx context.Context) (store.Theme, error) {
	theme := c.prefs.ToggleTheme()
	if err := c.kv.SaveTheme(ctx, string(theme)); err != nil {
		return theme, fmt.Errorf("save theme: %w", err)
	}
	return theme, nil
}

// ResetSession returns the live store to its initial state, which also
// stops polling.
func (c *Controller) ResetSession() {
	c.transition.Lock()
	defer c.transition.Unlock()
	c.live.Reset()
}
