package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{t: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeService struct {
	mu             sync.Mutex
	current        *AttemptRef
	currentErr     error
	started        *AttemptRef
	startErr       error
	content        *AttemptContent
	contentErr     error
	langs          []Language
	codingPassed   bool
	codingErr      error
	codingCalls    []CodingSolution
	submitErr      error
	submitCalls    int
	submitPayloads []SubmitPayload
	reports        []ViolationType
}

func (f *fakeService) GetCurrentAttempt(ctx context.Context, testID uuid.UUID) (*AttemptRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentErr
}

func (f *fakeService) StartAttempt(ctx context.Context, testID uuid.UUID) (*AttemptRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.startErr
}

func (f *fakeService) GetQuestions(ctx context.Context, attemptID uuid.UUID) (*AttemptContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.contentErr
}

func (f *fakeService) ListProgrammingLanguages(ctx context.Context) ([]Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.langs, nil
}

func (f *fakeService) SubmitCoding(ctx context.Context, attemptID uuid.UUID, sol CodingSolution) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codingErr != nil {
		return false, f.codingErr
	}
	f.codingCalls = append(f.codingCalls, sol)
	return f.codingPassed, nil
}

func (f *fakeService) Submit(ctx context.Context, attemptID uuid.UUID, payload SubmitPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitCalls++
	f.submitPayloads = append(f.submitPayloads, payload)
	return nil
}

func (f *fakeService) RecordMalpractice(ctx context.Context, attemptID uuid.UUID, vtype ViolationType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, vtype)
	return nil
}

func (f *fakeService) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func (f *fakeService) reported() []ViolationType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ViolationType, len(f.reports))
	copy(out, f.reports)
	return out
}

func (f *fakeService) setSubmitErr(err error) {
	f.mu.Lock()
	f.submitErr = err
	f.mu.Unlock()
}

func mcqContent(start time.Time, budget int, questions ...Question) *AttemptContent {
	return &AttemptContent{
		TestType:        TestTypeMCQ,
		Questions:       questions,
		MaxNavigations:  budget,
		DurationMinutes: 60,
		StartedAt:       start,
	}
}

func activeSession(t *testing.T, svc *fakeService, clock Clock) *Session {
	t.Helper()
	s := NewSession(SessionConfig{
		Service:      svc,
		Clock:        clock,
		TickInterval: 5 * time.Millisecond,
	}, zerolog.Nop())
	t.Cleanup(s.Close)

	require.NoError(t, s.Acquire(context.Background(), uuid.New(), uuid.Nil))
	require.NoError(t, s.LoadContent(context.Background()))
	require.Equal(t, StateActive, s.State())
	return s
}

func TestAcquireStartsWhenNoOpenAttempt(t *testing.T) {
	ref := &AttemptRef{AttemptID: uuid.New()}
	svc := &fakeService{started: ref}

	s := NewSession(SessionConfig{Service: svc}, zerolog.Nop())
	require.NoError(t, s.Acquire(context.Background(), uuid.New(), uuid.Nil))
	assert.Equal(t, ref.AttemptID, s.AttemptID())
}

func TestAcquireResumeSkipsRemoteLookup(t *testing.T) {
	svc := &fakeService{currentErr: errors.New("must not be called")}
	resumeID := uuid.New()

	s := NewSession(SessionConfig{Service: svc}, zerolog.Nop())
	require.NoError(t, s.Acquire(context.Background(), uuid.New(), resumeID))
	assert.Equal(t, resumeID, s.AttemptID())
}

func TestAcquireFailureIsAttemptUnavailable(t *testing.T) {
	svc := &fakeService{startErr: errors.New("test not live")}

	s := NewSession(SessionConfig{Service: svc}, zerolog.Nop())
	err := s.Acquire(context.Background(), uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, ErrAttemptUnavailable)
	assert.Equal(t, uuid.Nil, s.AttemptID(), "no partial state after failure")
}

func TestNormalMCQCompletion(t *testing.T) {
	start := time.Now()
	clock := newFakeClock(start)

	q1 := Question{ID: uuid.New(), Kind: QuestionSingleChoice, Options: []Option{{ID: uuid.New()}, {ID: uuid.New()}}}
	q2 := Question{ID: uuid.New(), Kind: QuestionSingleChoice, Options: []Option{{ID: uuid.New()}, {ID: uuid.New()}}}
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 3, q1, q2),
	}

	s := activeSession(t, svc, clock)

	optA := q1.Options[0].ID
	optB := q2.Options[1].ID
	s.Answers().SetMCQSelection(q1.ID, optA, false)
	require.NoError(t, s.Advance(context.Background(), Next))
	assert.Equal(t, 1, s.Index())
	s.Answers().SetMCQSelection(q2.ID, optB, false)

	require.NoError(t, s.Finalize(context.Background()))
	assert.Equal(t, StateSubmitted, s.State())
	require.Equal(t, 1, svc.submitted())
	assert.Equal(t, map[uuid.UUID][]uuid.UUID{
		q1.ID: {optA},
		q2.ID: {optB},
	}, svc.submitPayloads[0].Answers)
}

func TestCountdownMonotonicAndClampedAtZero(t *testing.T) {
	start := time.Now()
	clock := newFakeClock(start)
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 3, Question{ID: uuid.New(), Kind: QuestionSingleChoice}),
	}
	s := activeSession(t, svc, clock)

	prev := s.Remaining()
	assert.Equal(t, 60*time.Minute, prev)
	for _, step := range []time.Duration{time.Minute, 30 * time.Minute, 28 * time.Minute, 2 * time.Minute} {
		clock.Advance(step)
		cur := s.Remaining()
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, time.Duration(0), s.Remaining())
	clock.Advance(time.Hour)
	assert.Equal(t, time.Duration(0), s.Remaining(), "remaining never goes negative")
}

func TestTimeoutAutoSubmit(t *testing.T) {
	start := time.Now()
	clock := newFakeClock(start)

	q1 := Question{ID: uuid.New(), Kind: QuestionSingleChoice, Options: []Option{{ID: uuid.New()}}}
	q2 := Question{ID: uuid.New(), Kind: QuestionSingleChoice, Options: []Option{{ID: uuid.New()}}}
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 3, q1, q2),
	}
	s := activeSession(t, svc, clock)

	optA := q1.Options[0].ID
	s.Answers().SetMCQSelection(q1.ID, optA, false)

	clock.Advance(61 * time.Minute)

	require.Eventually(t, func() bool { return svc.submitted() == 1 }, time.Second, 5*time.Millisecond,
		"crossing the deadline fires exactly one automatic submission")
	assert.True(t, s.TimeUp())
	assert.Equal(t, StateSubmitted, s.State())

	payload := svc.submitPayloads[0]
	assert.Equal(t, []uuid.UUID{optA}, payload.Answers[q1.ID])
	assert.NotContains(t, payload.Answers, q2.ID)

	// Nothing else ever submits again.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, svc.submitted())
}

func TestFinalizeAtMostOnceUnderConcurrency(t *testing.T) {
	start := time.Now()
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 3, Question{ID: uuid.New(), Kind: QuestionSingleChoice}),
	}
	s := activeSession(t, svc, newFakeClock(start))

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Finalize(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, svc.submitted(), "exactly one remote submit call regardless of caller interleaving")
	assert.Equal(t, StateSubmitted, s.State())
}

func TestFinalizeFailureKeepsSessionActiveForRetry(t *testing.T) {
	start := time.Now()
	svc := &fakeService{
		started:   &AttemptRef{AttemptID: uuid.New()},
		content:   mcqContent(start, 3, Question{ID: uuid.New(), Kind: QuestionSingleChoice}),
		submitErr: errors.New("gateway timeout"),
	}
	s := activeSession(t, svc, newFakeClock(start))

	err := s.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, StateActive, s.State())

	svc.setSubmitErr(nil)
	require.NoError(t, s.Finalize(context.Background()))
	assert.Equal(t, StateSubmitted, s.State())
	assert.Equal(t, 1, svc.submitted())
}

func TestBudgetExhaustionTerminatesWithoutSubmit(t *testing.T) {
	start := time.Now()
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 3, Question{ID: uuid.New(), Kind: QuestionSingleChoice}),
	}
	s := activeSession(t, svc, newFakeClock(start))

	// First three tab switches warn with running counts 1, 2, 3.
	for i := 1; i <= 3; i++ {
		s.HandleViolation(Signal{Type: ViolationTabSwitch, At: time.Now()})
		ev := waitEvent(t, s, EventWarning)
		assert.Equal(t, i, ev.Count)
		assert.Equal(t, 3, ev.Budget)
		assert.Equal(t, StateActive, s.State())
	}

	// The fourth exceeds the budget: distinguished report, forced end,
	// and no submission ever.
	s.HandleViolation(Signal{Type: ViolationTabSwitch, At: time.Now()})
	waitEvent(t, s, EventTerminated)
	assert.Equal(t, StateTerminated, s.State())

	require.Eventually(t, func() bool {
		for _, r := range svc.reported() {
			if r == ViolationTabLimitExceeded {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, svc.submitted(), "termination forfeits the attempt; answers are never persisted")

	// Terminal state is sticky: further violations and finalize are no-ops.
	s.HandleViolation(Signal{Type: ViolationTabSwitch, At: time.Now()})
	assert.ErrorIs(t, s.Finalize(context.Background()), ErrSessionNotActive)
	assert.Equal(t, 0, svc.submitted())
}

func TestContextMenuReportedButNeverCounted(t *testing.T) {
	start := time.Now()
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 1, Question{ID: uuid.New(), Kind: QuestionSingleChoice}),
	}
	s := activeSession(t, svc, newFakeClock(start))

	for i := 0; i < 5; i++ {
		s.HandleViolation(Signal{Type: ViolationContextMenu, At: time.Now()})
	}

	require.Eventually(t, func() bool { return len(svc.reported()) == 5 }, time.Second, 5*time.Millisecond)
	count, _ := s.Violations()
	assert.Equal(t, 0, count)
	assert.Equal(t, StateActive, s.State())
}

func TestCodingPerProblemFlow(t *testing.T) {
	start := time.Now()
	p1 := Problem{ID: uuid.New(), Title: "Two Sum"}
	p2 := Problem{ID: uuid.New(), Title: "Reverse List"}
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: &AttemptContent{
			TestType:        TestTypeCoding,
			Problems:        []Problem{p1, p2},
			MaxNavigations:  3,
			DurationMinutes: 60,
			StartedAt:       start,
		},
		langs:        []Language{{ID: 1, Name: "Python"}, {ID: 2, Name: "Go"}},
		codingPassed: false,
	}
	s := activeSession(t, svc, newFakeClock(start))

	s.Answers().SetCode(p1.ID, "def solve(): pass")

	// Forward advance submits the current problem's code and moves on
	// regardless of the pass/fail signal.
	require.NoError(t, s.Advance(context.Background(), Next))
	assert.Equal(t, 1, s.Index())
	assert.True(t, s.IsLast())

	svc.mu.Lock()
	require.Len(t, svc.codingCalls, 1)
	assert.Equal(t, p1.ID, svc.codingCalls[0].ProblemID)
	assert.Equal(t, "def solve(): pass", svc.codingCalls[0].Code)
	assert.Equal(t, 1, svc.codingCalls[0].LanguageID, "first catalog language is the default")
	svc.mu.Unlock()

	// Finalize carries one solution per problem with the shared language.
	s.Answers().SetCode(p2.ID, "def reverse(): pass")
	s.Answers().SetLanguage(2)
	require.NoError(t, s.Finalize(context.Background()))

	require.Equal(t, 1, svc.submitted())
	sols := svc.submitPayloads[0].Solutions
	require.Len(t, sols, 2)
	for _, sol := range sols {
		assert.Equal(t, 2, sol.LanguageID)
	}
}

func TestCodingAdvanceBlockedOnSubmitFailure(t *testing.T) {
	start := time.Now()
	p1 := Problem{ID: uuid.New()}
	p2 := Problem{ID: uuid.New()}
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: &AttemptContent{
			TestType:        TestTypeCoding,
			Problems:        []Problem{p1, p2},
			MaxNavigations:  3,
			DurationMinutes: 60,
			StartedAt:       start,
		},
		langs:     []Language{{ID: 1, Name: "Python"}},
		codingErr: errors.New("judge offline"),
	}
	s := activeSession(t, svc, newFakeClock(start))

	err := s.Advance(context.Background(), Next)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, 0, s.Index(), "advancing is blocked until the submission resolves")
}

func TestSubmitProblemWithEmptyProblemSet(t *testing.T) {
	start := time.Now()
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: &AttemptContent{
			TestType:        TestTypeCoding,
			MaxNavigations:  3,
			DurationMinutes: 60,
			StartedAt:       start,
		},
		langs: []Language{{ID: 1, Name: "Python"}},
	}
	s := activeSession(t, svc, newFakeClock(start))

	passed, err := s.SubmitCurrentProblem(context.Background())
	assert.ErrorIs(t, err, ErrSessionNotActive)
	assert.False(t, passed)
}

func TestFullscreenBlockingState(t *testing.T) {
	start := time.Now()
	src := newFakeSource()
	mon := NewMonitor(MonitorConfig{Source: src}, zerolog.Nop())
	svc := &fakeService{
		started: &AttemptRef{AttemptID: uuid.New()},
		content: mcqContent(start, 3, Question{ID: uuid.New(), Kind: QuestionSingleChoice}),
	}

	s := NewSession(SessionConfig{
		Service:      svc,
		Monitor:      mon,
		Clock:        newFakeClock(start),
		TickInterval: 5 * time.Millisecond,
	}, zerolog.Nop())
	t.Cleanup(s.Close)
	require.NoError(t, s.Acquire(context.Background(), uuid.New(), uuid.Nil))
	require.NoError(t, s.LoadContent(context.Background()))

	src.ch <- Signal{Type: ViolationFullscreenExit, At: time.Now()}
	require.Eventually(t, s.Blocked, time.Second, 5*time.Millisecond)

	// Blocking consumes no budget.
	count, _ := s.Violations()
	assert.Equal(t, 0, count)
	assert.Empty(t, svc.reported())

	src.ch <- Signal{Type: SignalFullscreenEnter, At: time.Now()}
	require.Eventually(t, func() bool { return !s.Blocked() }, time.Second, 5*time.Millisecond)
}

// waitEvent drains the session event stream until the wanted kind arrives.
func waitEvent(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
			return Event{}
		}
	}
}
