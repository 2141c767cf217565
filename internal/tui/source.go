package tui

import (
	"sync"

	"github.com/proctorly/backend/internal/engine"
)

// TerminalSignalSource adapts terminal focus events into engine signals.
// The terminal host has no console or fullscreen surface, so only focus
// loss (reported by the terminal emulator) maps onto a violation.
type TerminalSignalSource struct {
	ch        chan engine.Signal
	closeOnce sync.Once
}

// NewTerminalSignalSource creates a TerminalSignalSource.
func NewTerminalSignalSource() *TerminalSignalSource {
	return &TerminalSignalSource{ch: make(chan engine.Signal, 8)}
}

// Signals implements engine.SignalSource.
func (s *TerminalSignalSource) Signals() <-chan engine.Signal {
	return s.ch
}

// Emit forwards one signal, dropping it if the consumer is gone.
func (s *TerminalSignalSource) Emit(sig engine.Signal) {
	select {
	case s.ch <- sig:
	default:
	}
}

// Close implements engine.SignalSource.
func (s *TerminalSignalSource) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}
