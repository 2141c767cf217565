// Package engine implements the client-side attempt engine for proctored
// tests: session lifecycle, integrity monitoring, violation policy, and
// in-progress answer state. It is platform-independent; hosts supply the
// remote service, the platform signal source, and a clock.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TestType distinguishes MCQ tests from coding tests.
type TestType string

const (
	TestTypeMCQ    TestType = "MCQ"
	TestTypeCoding TestType = "CODING"
)

// QuestionKind enumerates MCQ selection semantics.
type QuestionKind string

const (
	QuestionSingleChoice   QuestionKind = "SINGLE_CHOICE"
	QuestionMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
)

// ViolationType tags an integrity violation event.
type ViolationType string

const (
	ViolationTabSwitch        ViolationType = "tab_switch"
	ViolationConsole          ViolationType = "console"
	ViolationContextMenu      ViolationType = "context_menu"
	ViolationFullscreenExit   ViolationType = "fullscreen_exit"
	ViolationTabLimitExceeded ViolationType = "tab_limit_exceeded"
)

// Option is a selectable MCQ option.
type Option struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// Question is a single MCQ question with its ordered options.
type Question struct {
	ID      uuid.UUID    `json:"id"`
	Prompt  string       `json:"prompt"`
	Kind    QuestionKind `json:"kind"`
	Options []Option     `json:"options"`
}

// Problem is a single coding problem.
type Problem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// Language is an entry of the programming-language catalog.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"language"`
}

// AttemptRef identifies an open attempt on the remote service.
type AttemptRef struct {
	AttemptID uuid.UUID `json:"attempt_id"`
}

// AttemptContent is the immutable content and parameters of an attempt,
// loaded once per session.
type AttemptContent struct {
	TestType        TestType   `json:"test_type"`
	Questions       []Question `json:"questions,omitempty"`
	Problems        []Problem  `json:"problems,omitempty"`
	MaxNavigations  int        `json:"max_navigations"`
	DurationMinutes int        `json:"duration_minutes"`
	StartedAt       time.Time  `json:"started_at"`
}

// CodingSolution is one problem's submitted code.
type CodingSolution struct {
	ProblemID  uuid.UUID `json:"problem_id"`
	LanguageID int       `json:"language_id"`
	Code       string    `json:"code"`
}

// SubmitPayload carries the full answer set for final submission.
// Exactly one of Answers or Solutions is populated, keyed by test type.
type SubmitPayload struct {
	Answers   map[uuid.UUID][]uuid.UUID `json:"answers,omitempty"`
	Solutions []CodingSolution          `json:"solutions,omitempty"`
}

// TestService is the remote attempt authority the engine talks to. The
// engine is its sole caller within a session.
type TestService interface {
	// GetCurrentAttempt returns the caller's open attempt for the test,
	// or nil if none exists.
	GetCurrentAttempt(ctx context.Context, testID uuid.UUID) (*AttemptRef, error)

	// StartAttempt opens a new attempt. Fails if the test is not live.
	StartAttempt(ctx context.Context, testID uuid.UUID) (*AttemptRef, error)

	// GetQuestions returns the attempt's immutable content and parameters.
	GetQuestions(ctx context.Context, attemptID uuid.UUID) (*AttemptContent, error)

	// ListProgrammingLanguages returns the static language catalog.
	ListProgrammingLanguages(ctx context.Context) ([]Language, error)

	// SubmitCoding records one problem's code and returns an immediate
	// pass/fail signal. Does not finalize the attempt.
	SubmitCoding(ctx context.Context, attemptID uuid.UUID, sol CodingSolution) (bool, error)

	// Submit finalizes the attempt. The engine guarantees at most one
	// call per session.
	Submit(ctx context.Context, attemptID uuid.UUID, payload SubmitPayload) error

	// RecordMalpractice appends a violation record. Fire-and-forget from
	// the engine's perspective.
	RecordMalpractice(ctx context.Context, attemptID uuid.UUID, vtype ViolationType) error
}
