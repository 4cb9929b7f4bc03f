// Package connectivity fuses transport feedback, host network edges and a
// periodic feed liveness poll into one process-wide offline flag.
package connectivity

import (
	"context"
	"sync"
	"time"

	"frontdesk/internal/events"
	"frontdesk/internal/metrics"
	"frontdesk/internal/models"

	"github.com/rs/zerolog"
)

// Signal sources in priority order. When several sources disagree within one
// evaluation window, the highest priority one wins.
const (
	SourceTransport = "transport"
	SourceHost      = "host"
	SourcePoll      = "poll"
	SourceManual    = "manual"
)

// FeedStatus is the live feed surface the monitor polls and reconnects.
type FeedStatus interface {
	Connected() bool
	Reconnect()
}

type signalState struct {
	offline bool
	at      time.Time
}

// Monitor owns the offline flag. Edge signals (transport failure, host
// up/down) apply immediately; the poll runs every PollInterval and acts as
// the default signal when no edge fired since the previous evaluation.
type Monitor struct {
	feed   FeedStatus
	bus    *events.EventBus
	logger *zerolog.Logger

	pollInterval time.Duration

	mu        sync.Mutex
	offline   bool
	transport signalState
	host      signalState
	lastEval  time.Time
}

func NewMonitor(feed FeedStatus, bus *events.EventBus, pollInterval time.Duration, logger *zerolog.Logger) *Monitor {
	if pollInterval <= 0 {
		pollInterval = models.ConnectivityPollInterval
	}
	return &Monitor{
		feed:         feed,
		bus:          bus,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// IsOffline returns the current fused connectivity state.
func (m *Monitor) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// SetOffline overrides the flag directly (degraded-mode toggle in the UI).
func (m *Monitor) SetOffline(offline bool) {
	m.set(offline, SourceManual)
}

// ReportTransportFailure records a failed outbound call. Highest priority,
// applied immediately without waiting for the next poll.
func (m *Monitor) ReportTransportFailure() {
	m.mu.Lock()
	m.transport = signalState{offline: true, at: time.Now()}
	m.mu.Unlock()
	m.set(true, SourceTransport)
}

// ReportTransportSuccess records a successful outbound call and clears the
// offline flag.
func (m *Monitor) ReportTransportSuccess() {
	m.mu.Lock()
	m.transport = signalState{offline: false, at: time.Now()}
	m.mu.Unlock()
	m.set(false, SourceTransport)
}

// ReportHostDown records a host-level network-down edge.
func (m *Monitor) ReportHostDown() {
	m.mu.Lock()
	m.host = signalState{offline: true, at: time.Now()}
	m.mu.Unlock()
	m.set(true, SourceHost)
}

// ReportHostUp records a host-level network-up edge and forces the live feed
// to reconnect instead of waiting out its own backoff.
func (m *Monitor) ReportHostUp() {
	m.mu.Lock()
	m.host = signalState{offline: false, at: time.Now()}
	m.mu.Unlock()
	if m.feed != nil {
		m.feed.Reconnect()
	}
	m.set(false, SourceHost)
}

// Start runs the liveness poll until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evaluate()
		}
	}
}

// evaluate resolves the signals observed since the previous tick. Transport
// feedback beats host edges beats the poll; the poll is the level-triggered
// default when no edge fired in the window.
func (m *Monitor) evaluate() {
	m.mu.Lock()
	prevEval := m.lastEval
	m.lastEval = time.Now()
	transport, host := m.transport, m.host
	m.mu.Unlock()

	offline := false
	source := SourcePoll
	switch {
	case transport.at.After(prevEval):
		offline = transport.offline
		source = SourceTransport
	case host.at.After(prevEval):
		offline = host.offline
		source = SourceHost
	default:
		if m.feed != nil {
			offline = !m.feed.Connected()
		}
	}

	m.set(offline, source)
}

func (m *Monitor) set(offline bool, source string) {
	m.mu.Lock()
	changed := m.offline != offline
	m.offline = offline
	m.mu.Unlock()

	if !changed {
		return
	}

	metrics.SetOffline(offline)
	m.logger.Info().Bool("offline", offline).Str("source", source).Msg("connectivity changed")
	if err := m.bus.PublishJSON(events.EventConnectivityChanged, events.ConnectivityEventPayload{
		Offline: offline,
		Source:  source,
	}); err != nil {
		m.logger.Error().Err(err).Msg("publish connectivity event")
	}
}
