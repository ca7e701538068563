// Package health tracks whether the processing service is reachable.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/models"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// Prober performs one liveness request. A nil error means the service is up.
type Prober interface {
	Health(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Health(ctx context.Context) error { return f(ctx) }

// Status is a point-in-time view of the monitor.
type Status struct {
	Health      models.ServiceHealth `json:"health"`
	Label       string               `json:"label"`
	LastChecked time.Time            `json:"lastChecked,omitempty"`
	LastError   string               `json:"lastError,omitempty"`
}

// Monitor probes the service on a fixed interval and holds the latest result.
type Monitor struct {
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	log          *logrus.Entry

	mu          sync.RWMutex
	health      models.ServiceHealth
	lastChecked time.Time
	lastErr     error
	subs        map[int]chan models.ServiceHealth
	nextSub     int

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the probe interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithProbeTimeout bounds each probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMonitor creates a stopped monitor in the unknown state.
func NewMonitor(p Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:       p,
		interval:     DefaultInterval,
		probeTimeout: DefaultProbeTimeout,
		log:          logging.NewLogger("health"),
		health:       models.ServiceHealthUnknown,
		subs:         make(map[int]chan models.ServiceHealth),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the probe loop: one probe immediately, then one per
// interval until ctx is done or Stop is called. Later calls are no-ops.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		m.mu.Lock()
		m.cancel = cancel
		m.mu.Unlock()
		go m.run(ctx)
	})
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once and before Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		started := true
		m.startOnce.Do(func() { started = false })

		m.mu.RLock()
		cancel := m.cancel
		m.mu.RUnlock()

		if !started || cancel == nil {
			close(m.done)
			return
		}
		cancel()
		<-m.done
	})
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, m.probeTimeout)
	defer cancel()

	err := m.prober.Health(ctx)
	if parent.Err() != nil {
		// shutting down; the result says nothing about the service
		return
	}

	next := models.ServiceHealthOnline
	if err != nil {
		next = models.ServiceHealthOffline
	}
	m.set(next, err)
}

func (m *Monitor) set(next models.ServiceHealth, err error) {
	m.mu.Lock()
	prev := m.health
	m.health = next
	m.lastChecked = time.Now()
	m.lastErr = err

	var subs []chan models.ServiceHealth
	if prev != next {
		subs = make([]chan models.ServiceHealth, 0, len(m.subs))
		for _, ch := range m.subs {
			subs = append(subs, ch)
		}
	}
	m.mu.Unlock()

	if prev == next {
		return
	}

	entry := m.log.WithFields(logrus.Fields{"from": prev, "to": next})
	if err != nil {
		entry.WithError(err).Warn("processing service unreachable")
	} else {
		entry.Info("processing service reachable")
	}

	for _, ch := range subs {
		publish(ch, next)
	}
}

// publish replaces any unread value so subscribers always see the latest state.
func publish(ch chan models.ServiceHealth, h models.ServiceHealth) {
	for {
		select {
		case ch <- h:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// CurrentHealth returns the latest probe result without blocking on a probe.
func (m *Monitor) CurrentHealth() models.ServiceHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}

// Status returns the latest result with its timestamp and error.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		Health:      m.health,
		Label:       m.health.Label(),
		LastChecked: m.lastChecked,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Subscribe returns a channel receiving health changes and a function that
// unsubscribes. A slow reader only ever sees the most recent change.
func (m *Monitor) Subscribe() (<-chan models.ServiceHealth, func()) {
	ch := make(chan models.ServiceHealth, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}
