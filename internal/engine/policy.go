package engine

import "sync"

// Verdict is the policy's decision for a single violation.
type Verdict int

const (
	// VerdictNone means the violation is reported but carries no local
	// consequence (context_menu).
	VerdictNone Verdict = iota
	// VerdictWarn means the counter is still within budget; the user is
	// warned and must acknowledge.
	VerdictWarn
	// VerdictTerminate means the budget is exhausted; the session must be
	// force-terminated without submission.
	VerdictTerminate
)

// Decision is the outcome of recording one violation.
type Decision struct {
	Verdict Verdict
	Count   int
	Budget  int
}

// Policy maintains the monotonic violation counter against the navigation
// budget. It performs no I/O: the session owns the termination side effect.
type Policy struct {
	mu     sync.Mutex
	count  int
	budget int
}

// NewPolicy creates a policy with the attempt's maxNavigations budget.
// The budget is fixed for the lifetime of the session.
func NewPolicy(maxNavigations int) *Policy {
	return &Policy{budget: maxNavigations}
}

// Record applies one violation and returns the consequence. Only
// tab_switch and console increment the counter; context_menu is recorded
// remotely but never counted. Fullscreen signals are a blocking UI state,
// not a violation, and also never reach the counter.
func (p *Policy) Record(vtype ViolationType) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch vtype {
	case ViolationTabSwitch, ViolationConsole:
	default:
		return Decision{Verdict: VerdictNone, Count: p.count, Budget: p.budget}
	}

	p.count++
	if p.count > p.budget {
		return Decision{Verdict: VerdictTerminate, Count: p.count, Budget: p.budget}
	}
	return Decision{Verdict: VerdictWarn, Count: p.count, Budget: p.budget}
}

// Count returns the current violation count.
func (p *Policy) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Budget returns the navigation budget the policy was created with.
func (p *Policy) Budget() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.budget
}
