package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ch        chan Signal
	closeOnce sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan Signal, 16)}
}

func (f *fakeSource) Signals() <-chan Signal { return f.ch }

func (f *fakeSource) Close() error {
	f.closeOnce.Do(func() { close(f.ch) })
	return nil
}

type fakeProbe struct{ attached bool }

func (f *fakeProbe) Attached() bool { return f.attached }

type violationRecorder struct {
	mu   sync.Mutex
	sigs []Signal
}

func (r *violationRecorder) record(sig Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sigs = append(r.sigs, sig)
}

func (r *violationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sigs)
}

func (r *violationRecorder) types() []ViolationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ViolationType, len(r.sigs))
	for i, s := range r.sigs {
		out[i] = s.Type
	}
	return out
}

func startMonitor(t *testing.T, src SignalSource, cfg MonitorConfig) (*Monitor, *violationRecorder) {
	t.Helper()
	cfg.Source = src
	m := NewMonitor(cfg, zerolog.Nop())
	rec := &violationRecorder{}
	m.OnViolation(rec.record)
	m.Start(context.Background())
	t.Cleanup(m.Close)
	return m, rec
}

func TestConsoleThrottling(t *testing.T) {
	src := newFakeSource()
	_, rec := startMonitor(t, src, MonitorConfig{ConsoleThrottle: 5 * time.Second})

	base := time.Now()
	src.ch <- Signal{Type: ViolationConsole, At: base}
	src.ch <- Signal{Type: ViolationConsole, At: base.Add(time.Second)}
	src.ch <- Signal{Type: ViolationConsole, At: base.Add(4 * time.Second)}

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond,
		"overlapping console triggers must collapse into one firing per throttle window")

	// Past the window, the next trigger fires again.
	src.ch <- Signal{Type: ViolationConsole, At: base.Add(6 * time.Second)}
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestResizeGapHeuristic(t *testing.T) {
	src := newFakeSource()
	_, rec := startMonitor(t, src, MonitorConfig{ConsoleThrottle: time.Hour})

	// Within tolerance: no firing.
	src.ch <- Signal{Type: SignalResize, At: time.Now(), Metrics: &WindowMetrics{
		OuterWidth: 1280, InnerWidth: 1230, OuterHeight: 800, InnerHeight: 760,
	}}
	// Docked panel: vertical gap over the threshold.
	src.ch <- Signal{Type: SignalResize, At: time.Now(), Metrics: &WindowMetrics{
		OuterWidth: 1280, InnerWidth: 1230, OuterHeight: 800, InnerHeight: 650,
	}}

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ViolationConsole, rec.types()[0])
}

func TestTabSwitchAndContextMenuUnthrottled(t *testing.T) {
	src := newFakeSource()
	_, rec := startMonitor(t, src, MonitorConfig{})

	now := time.Now()
	src.ch <- Signal{Type: ViolationTabSwitch, At: now}
	src.ch <- Signal{Type: ViolationTabSwitch, At: now}
	src.ch <- Signal{Type: ViolationContextMenu, At: now}

	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []ViolationType{ViolationTabSwitch, ViolationTabSwitch, ViolationContextMenu}, rec.types())
}

func TestFullscreenSignalsAreBlockingNotViolations(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(MonitorConfig{Source: src}, zerolog.Nop())
	rec := &violationRecorder{}
	m.OnViolation(rec.record)

	var mu sync.Mutex
	var states []bool
	m.OnFullscreenChange(func(active bool) {
		mu.Lock()
		states = append(states, active)
		mu.Unlock()
	})

	m.Start(context.Background())
	defer m.Close()

	src.ch <- Signal{Type: ViolationFullscreenExit, At: time.Now()}
	src.ch <- Signal{Type: SignalFullscreenEnter, At: time.Now()}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []bool{false, true}, states)
	mu.Unlock()
	assert.Equal(t, 0, rec.count(), "fullscreen changes never reach the violation handler")
}

func TestDebugProbeFiresConsole(t *testing.T) {
	src := newFakeSource()
	_, rec := startMonitor(t, src, MonitorConfig{
		Probe:           &fakeProbe{attached: true},
		ProbeInterval:   5 * time.Millisecond,
		ConsoleThrottle: time.Hour,
	})

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	// The probe keeps detecting, but the throttle holds it to one firing.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}
