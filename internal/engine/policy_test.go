package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudgetBoundary(t *testing.T) {
	const budget = 3
	p := NewPolicy(budget)

	// The k-th qualifying violation warns; the (k+1)-th terminates.
	for i := 1; i <= budget; i++ {
		d := p.Record(ViolationTabSwitch)
		assert.Equal(t, VerdictWarn, d.Verdict)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, budget, d.Budget)
	}

	d := p.Record(ViolationConsole)
	assert.Equal(t, VerdictTerminate, d.Verdict)
	assert.Equal(t, budget+1, d.Count)
}

func TestContextMenuNeverCounts(t *testing.T) {
	p := NewPolicy(1)

	for i := 0; i < 10; i++ {
		d := p.Record(ViolationContextMenu)
		assert.Equal(t, VerdictNone, d.Verdict)
		assert.Equal(t, 0, d.Count)
	}
	assert.Equal(t, 0, p.Count())

	// A counted violation still behaves normally afterwards.
	d := p.Record(ViolationTabSwitch)
	assert.Equal(t, VerdictWarn, d.Verdict)
	assert.Equal(t, 1, d.Count)
}

func TestFullscreenExitNeverCounts(t *testing.T) {
	p := NewPolicy(0)
	d := p.Record(ViolationFullscreenExit)
	assert.Equal(t, VerdictNone, d.Verdict)
	assert.Equal(t, 0, p.Count())
}

func TestZeroBudgetTerminatesImmediately(t *testing.T) {
	p := NewPolicy(0)
	d := p.Record(ViolationTabSwitch)
	assert.Equal(t, VerdictTerminate, d.Verdict)
	assert.Equal(t, 1, d.Count)
}
