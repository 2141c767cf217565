package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the session lifecycle state. Transitions are one-way:
// loading → active → {submitted, terminated}.
type State int32

const (
	StateLoading State = iota
	StateActive
	StateSubmitted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateSubmitted:
		return "submitted"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Direction for question/problem navigation.
type Direction int

const (
	Next Direction = iota
	Previous
)

// EventKind tags session events delivered to the presentation layer.
type EventKind int

const (
	// EventWarning: a counted violation within budget. Requires user
	// acknowledgment but does not pause the countdown.
	EventWarning EventKind = iota
	// EventBlocked: the fullscreen-required blocking state changed.
	EventBlocked
	// EventTimeUp: the countdown crossed zero. One-way.
	EventTimeUp
	// EventSubmitted: finalize succeeded; navigate away.
	EventSubmitted
	// EventTerminated: budget exhausted; log out and redirect.
	EventTerminated
	// EventProblemResult: a per-problem coding submission returned its
	// pass/fail signal (UI feedback only).
	EventProblemResult
)

// Event is a session notification for the presentation adapter.
type Event struct {
	Kind      EventKind
	Violation ViolationType // EventWarning
	Count     int           // EventWarning
	Budget    int           // EventWarning
	Blocked   bool          // EventBlocked
	ProblemID uuid.UUID     // EventProblemResult
	Passed    bool          // EventProblemResult
}

// reportTimeout bounds fire-and-forget malpractice reporting.
const reportTimeout = 10 * time.Second

// SessionConfig wires a Session to its collaborators.
type SessionConfig struct {
	Service TestService
	Monitor *Monitor // optional; nil disables integrity monitoring
	Clock   Clock    // defaults to SystemClock

	// TickInterval is the countdown recomputation period.
	// Defaults to one second.
	TickInterval time.Duration
}

// Session owns one attempt from acquisition through termination. It is the
// single writer of attempt state and the sole caller of the remote start
// and submit endpoints.
type Session struct {
	svc    TestService
	mon    *Monitor
	clock  Clock
	tick   time.Duration
	log    zerolog.Logger
	events chan Event

	mu        sync.Mutex
	state     State
	testID    uuid.UUID
	attemptID uuid.UUID
	content   *AttemptContent
	languages []Language
	index     int
	blocked   bool

	answers *AnswerStore
	policy  *Policy

	finalizing atomic.Bool
	timeUp     atomic.Bool
	autoSubmit sync.Once

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session in the loading state.
func NewSession(cfg SessionConfig, log zerolog.Logger) *Session {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Session{
		svc:     cfg.Service,
		mon:     cfg.Monitor,
		clock:   cfg.Clock,
		tick:    cfg.TickInterval,
		log:     log.With().Str("component", "attempt_session").Logger(),
		events:  make(chan Event, 16),
		state:   StateLoading,
		answers: NewAnswerStore(),
		done:    make(chan struct{}),
	}
}

// Events delivers session notifications to the presentation adapter.
// The channel is buffered; events overflow to a non-blocking drop so a
// stalled consumer can never wedge the engine.
func (s *Session) Events() <-chan Event { return s.events }

// Acquire resolves the attempt identity. A supplied resume id is used
// directly; otherwise the service is queried for an open attempt and a new
// one is started if none exists. Any failure maps to ErrAttemptUnavailable
// with no partial state retained.
func (s *Session) Acquire(ctx context.Context, testID uuid.UUID, resumeAttemptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return ErrSessionNotActive
	}
	s.testID = testID

	if resumeAttemptID != uuid.Nil {
		s.attemptID = resumeAttemptID
		return nil
	}

	ref, err := s.svc.GetCurrentAttempt(ctx, testID)
	if err != nil {
		return fmt.Errorf("%w: query open attempt: %v", ErrAttemptUnavailable, err)
	}
	if ref == nil {
		ref, err = s.svc.StartAttempt(ctx, testID)
		if err != nil {
			return fmt.Errorf("%w: start attempt: %v", ErrAttemptUnavailable, err)
		}
	}

	s.attemptID = ref.AttemptID
	return nil
}

// LoadContent fetches the question/problem set and attempt parameters in
// one batch, then activates the session: countdown and integrity
// monitoring start only after this succeeds.
func (s *Session) LoadContent(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoading || s.attemptID == uuid.Nil {
		s.mu.Unlock()
		return ErrSessionNotActive
	}
	attemptID := s.attemptID
	s.mu.Unlock()

	content, err := s.svc.GetQuestions(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("%w: load content: %v", ErrAttemptUnavailable, err)
	}

	var langs []Language
	if content.TestType == TestTypeCoding {
		langs, err = s.svc.ListProgrammingLanguages(ctx)
		if err != nil {
			return fmt.Errorf("%w: load languages: %v", ErrAttemptUnavailable, err)
		}
		if len(langs) > 0 {
			s.answers.SetLanguage(langs[0].ID)
		}
	}

	s.mu.Lock()
	s.content = content
	s.languages = langs
	s.policy = NewPolicy(content.MaxNavigations)
	s.state = StateActive
	s.mu.Unlock()

	if s.mon != nil {
		s.mon.OnViolation(s.HandleViolation)
		s.mon.OnFullscreenChange(s.setFullscreen)
		s.mon.Start(ctx)
	}

	go s.countdown()

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Str("test_type", string(content.TestType)).
		Int("duration_minutes", content.DurationMinutes).
		Int("max_navigations", content.MaxNavigations).
		Msg("Session active")
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AttemptID returns the attempt identity, Nil before Acquire.
func (s *Session) AttemptID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

// Content returns the loaded attempt content, nil while loading.
func (s *Session) Content() *AttemptContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Languages returns the language catalog (coding tests only).
func (s *Session) Languages() []Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.languages
}

// Answers exposes the in-progress answer store.
func (s *Session) Answers() *AnswerStore { return s.answers }

// Violations returns the current count and budget of the policy engine.
func (s *Session) Violations() (count, budget int) {
	s.mu.Lock()
	p := s.policy
	s.mu.Unlock()
	if p == nil {
		return 0, 0
	}
	return p.Count(), p.Budget()
}

// Index returns the current navigation index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Count returns the number of questions or problems.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemCount()
}

func (s *Session) itemCount() int {
	if s.content == nil {
		return 0
	}
	if s.content.TestType == TestTypeCoding {
		return len(s.content.Problems)
	}
	return len(s.content.Questions)
}

// IsLast reports whether the current index is the final question/problem.
func (s *Session) IsLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index >= s.itemCount()-1
}

// Blocked reports whether the fullscreen-required overlay is in effect.
func (s *Session) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// TimeUp reports whether the countdown has crossed zero.
func (s *Session) TimeUp() bool { return s.timeUp.Load() }

// Remaining computes the countdown from the server-assigned start time.
// Never negative; monotonically non-increasing for a fixed deadline.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	content := s.content
	s.mu.Unlock()

	if content == nil {
		return 0
	}
	deadline := content.StartedAt.Add(time.Duration(content.DurationMinutes) * time.Minute)
	remaining := deadline.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Advance moves the navigation index by one, clamped to the content
// bounds. For coding tests a forward advance first submits the current
// problem's code; a failed submission blocks the move so the user can
// retry.
func (s *Session) Advance(ctx context.Context, dir Direction) error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrSessionNotActive
	}
	coding := s.content.TestType == TestTypeCoding
	last := s.index >= s.itemCount()-1
	s.mu.Unlock()

	if dir == Next && coding && !last {
		if _, err := s.SubmitCurrentProblem(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch dir {
	case Next:
		if s.index < s.itemCount()-1 {
			s.index++
		}
	case Previous:
		if s.index > 0 {
			s.index--
		}
	}
	return nil
}

// SubmitCurrentProblem records the current problem's code with the remote
// service and returns its pass/fail signal. Not a finalization: the result
// is UI feedback only, and the attempt stays open either way.
func (s *Session) SubmitCurrentProblem(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state != StateActive || s.content.TestType != TestTypeCoding || len(s.content.Problems) == 0 {
		s.mu.Unlock()
		return false, ErrSessionNotActive
	}
	problem := s.content.Problems[s.index]
	attemptID := s.attemptID
	s.mu.Unlock()

	sol := CodingSolution{
		ProblemID:  problem.ID,
		LanguageID: s.answers.Language(),
		Code:       s.answers.Code(problem.ID),
	}
	passed, err := s.svc.SubmitCoding(ctx, attemptID, sol)
	if err != nil {
		return false, fmt.Errorf("%w: problem %s: %v", ErrSubmissionFailed, problem.ID, err)
	}

	s.publish(Event{Kind: EventProblemResult, ProblemID: problem.ID, Passed: passed})
	return passed, nil
}

// Finalize assembles the full answer payload and submits it exactly once.
// Concurrent callers (timeout auto-submit racing a manual click) collapse
// into a single remote call: losers of the claim return nil. A failed
// submission releases the claim and leaves the session active for a manual
// retry.
func (s *Session) Finalize(ctx context.Context) error {
	if !s.finalizing.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		s.finalizing.Store(false)
		if state == StateSubmitted {
			return nil
		}
		return ErrSessionNotActive
	}
	attemptID := s.attemptID
	content := s.content
	s.mu.Unlock()

	payload := SubmitPayload{}
	if content.TestType == TestTypeCoding {
		langID := s.answers.Language()
		for _, p := range content.Problems {
			payload.Solutions = append(payload.Solutions, CodingSolution{
				ProblemID:  p.ID,
				LanguageID: langID,
				Code:       s.answers.Code(p.ID),
			})
		}
	} else {
		payload.Answers = s.answers.Answers()
	}

	if err := s.svc.Submit(ctx, attemptID, payload); err != nil {
		s.finalizing.Store(false)
		s.log.Warn().Err(err).Msg("Final submission failed, session stays active")
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	s.mu.Lock()
	s.state = StateSubmitted
	s.mu.Unlock()

	s.log.Info().Str("attempt_id", attemptID.String()).Msg("Attempt submitted")
	s.publish(Event{Kind: EventSubmitted})
	s.Close()
	return nil
}

// HandleViolation is the monitor's handler: it reports the event to the
// remote service (fire-and-forget) and applies the violation policy. The
// session, not the policy, performs the termination side effects.
func (s *Session) HandleViolation(sig Signal) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	attemptID := s.attemptID
	policy := s.policy
	s.mu.Unlock()

	s.report(attemptID, sig.Type)

	decision := policy.Record(sig.Type)
	switch decision.Verdict {
	case VerdictWarn:
		s.log.Warn().
			Str("type", string(sig.Type)).
			Int("count", decision.Count).
			Int("budget", decision.Budget).
			Msg("Violation within budget")
		s.publish(Event{
			Kind:      EventWarning,
			Violation: sig.Type,
			Count:     decision.Count,
			Budget:    decision.Budget,
		})
	case VerdictTerminate:
		s.log.Error().
			Str("type", string(sig.Type)).
			Int("count", decision.Count).
			Int("budget", decision.Budget).
			Msg("Navigation budget exhausted, terminating attempt")
		s.report(attemptID, ViolationTabLimitExceeded)
		s.terminate()
	}
}

// report sends a malpractice record without blocking the caller. Delivery
// failure never affects local policy decisions.
func (s *Session) report(attemptID uuid.UUID, vtype ViolationType) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := s.svc.RecordMalpractice(ctx, attemptID, vtype); err != nil {
			s.log.Debug().Err(err).Str("type", string(vtype)).Msg("Malpractice report failed")
		}
	}()
}

// terminate moves the session to its forced, answer-discarding end state.
// No final submission occurs.
func (s *Session) terminate() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateTerminated
	s.mu.Unlock()

	s.publish(Event{Kind: EventTerminated})
	s.Close()
}

func (s *Session) setFullscreen(active bool) {
	s.mu.Lock()
	if s.state != StateActive || s.blocked == !active {
		s.mu.Unlock()
		return
	}
	s.blocked = !active
	blocked := s.blocked
	s.mu.Unlock()

	s.publish(Event{Kind: EventBlocked, Blocked: blocked})
}

// countdown recomputes remaining time on a periodic tick. Crossing zero is
// a one-way transition that fires exactly one auto-submit, never retried.
func (s *Session) countdown() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.Remaining() > 0 {
				continue
			}
			if s.timeUp.CompareAndSwap(false, true) {
				s.publish(Event{Kind: EventTimeUp})
			}
			s.autoSubmit.Do(func() {
				ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
				defer cancel()
				if err := s.Finalize(ctx); err != nil {
					s.log.Error().Err(err).Msg("Auto-submit failed")
				}
			})
			return
		}
	}
}

// Close releases the countdown ticker, the monitor's listeners, and any
// in-flight reporters. Invoked exactly once regardless of how the session
// ends; safe to call from any state.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.mon != nil {
			s.mon.Close()
		}
	})
}

// publish delivers an event without ever blocking engine progress.
func (s *Session) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Debug().Int("kind", int(ev.Kind)).Msg("Event dropped, consumer stalled")
	}
}
