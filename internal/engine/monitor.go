package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Non-violation signal kinds a platform source may emit. Resize carries
// window geometry for the docked-devtools heuristic; fullscreen-enter
// clears the blocking state set by fullscreen-exit.
const (
	SignalResize          ViolationType = "resize"
	SignalFullscreenEnter ViolationType = "fullscreen_enter"
)

// Default monitor tuning. A docked debugging surface shows up as a gap
// between outer and inner window dimensions larger than DevtoolsGapPx.
const (
	DefaultProbeInterval   = 2 * time.Second
	DefaultConsoleThrottle = 5 * time.Second
	DevtoolsGapPx          = 100
)

// Signal is one observed environment event.
type Signal struct {
	Type    ViolationType
	At      time.Time
	Metrics *WindowMetrics // resize signals only
}

// WindowMetrics is a window geometry readout used by the devtools
// resize heuristic.
type WindowMetrics struct {
	OuterWidth  int
	OuterHeight int
	InnerWidth  int
	InnerHeight int
}

// SignalSource delivers raw platform signals (visibility changes, context
// menu, resize, fullscreen changes). Implementations close the channel
// when torn down.
type SignalSource interface {
	Signals() <-chan Signal
	Close() error
}

// DebugProbe reports whether a debugging surface is attached. Polled
// periodically by the monitor; the concrete mechanism is platform-specific.
type DebugProbe interface {
	Attached() bool
}

// MonitorConfig wires a Monitor to its platform inputs.
type MonitorConfig struct {
	Source SignalSource
	Probe  DebugProbe // optional
	Clock  Clock      // defaults to SystemClock

	ProbeInterval   time.Duration // defaults to DefaultProbeInterval
	ConsoleThrottle time.Duration // defaults to DefaultConsoleThrottle
}

// Monitor translates raw environment signals into typed violation events,
// independent of policy. Console detections from the probe and the resize
// heuristic are throttled to one firing per throttle window so overlapping
// triggers never double-count.
type Monitor struct {
	src      SignalSource
	probe    DebugProbe
	clock    Clock
	interval time.Duration
	throttle time.Duration
	log      zerolog.Logger

	onViolation  func(Signal)
	onFullscreen func(active bool)

	mu          sync.Mutex
	lastConsole time.Time

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewMonitor creates a Monitor. Handlers must be registered before Start.
func NewMonitor(cfg MonitorConfig, log zerolog.Logger) *Monitor {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}
	if cfg.ConsoleThrottle <= 0 {
		cfg.ConsoleThrottle = DefaultConsoleThrottle
	}
	return &Monitor{
		src:      cfg.Source,
		probe:    cfg.Probe,
		clock:    cfg.Clock,
		interval: cfg.ProbeInterval,
		throttle: cfg.ConsoleThrottle,
		log:      log.With().Str("component", "integrity_monitor").Logger(),
	}
}

// OnViolation registers the handler that receives each typed violation,
// invoked at most once per physical occurrence (post-throttling).
func (m *Monitor) OnViolation(h func(Signal)) { m.onViolation = h }

// OnFullscreenChange registers the handler for the blocking fullscreen
// state. active=false means the attempt screen must block until the user
// re-enters fullscreen.
func (m *Monitor) OnFullscreenChange(h func(active bool)) { m.onFullscreen = h }

// Start begins observing. Returns immediately; observation runs until
// Close or context cancellation.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	go m.consume(ctx)

	if m.probe != nil {
		go m.poll(ctx)
	}
}

// Close tears down the source and both observer goroutines. Idempotent,
// and safe to call from inside a violation handler: it signals shutdown
// without waiting on the goroutine that delivered the signal.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		if m.src != nil {
			if err := m.src.Close(); err != nil {
				m.log.Debug().Err(err).Msg("signal source close")
			}
		}
	})
}

func (m *Monitor) consume(ctx context.Context) {
	if m.src == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-m.src.Signals():
			if !ok {
				return
			}
			m.dispatch(sig)
		}
	}
}

func (m *Monitor) dispatch(sig Signal) {
	switch sig.Type {
	case ViolationTabSwitch, ViolationContextMenu:
		m.emit(sig)
	case ViolationConsole:
		m.emitConsole(sig.At)
	case SignalResize:
		if sig.Metrics != nil && devtoolsGap(*sig.Metrics) {
			m.emitConsole(sig.At)
		}
	case ViolationFullscreenExit:
		if m.onFullscreen != nil {
			m.onFullscreen(false)
		}
	case SignalFullscreenEnter:
		if m.onFullscreen != nil {
			m.onFullscreen(true)
		}
	default:
		m.log.Debug().Str("type", string(sig.Type)).Msg("unknown signal ignored")
	}
}

// poll runs the periodic debugger probe.
func (m *Monitor) poll(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.probe.Attached() {
				m.emitConsole(m.clock.Now())
			}
		}
	}
}

// emitConsole fires a console violation unless one already fired within
// the throttle window. Both the probe and the resize heuristic funnel
// through here, so their triggers share a single window.
func (m *Monitor) emitConsole(at time.Time) {
	m.mu.Lock()
	if !m.lastConsole.IsZero() && at.Sub(m.lastConsole) < m.throttle {
		m.mu.Unlock()
		return
	}
	m.lastConsole = at
	m.mu.Unlock()

	m.emit(Signal{Type: ViolationConsole, At: at})
}

func (m *Monitor) emit(sig Signal) {
	if m.onViolation != nil {
		m.onViolation(sig)
	}
}

func devtoolsGap(w WindowMetrics) bool {
	return w.OuterWidth-w.InnerWidth > DevtoolsGapPx ||
		w.OuterHeight-w.InnerHeight > DevtoolsGapPx
}
