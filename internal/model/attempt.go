package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusTerminated AttemptStatus = "TERMINATED"
	AttemptStatusExpired    AttemptStatus = "EXPIRED"
)

// Attempt represents one student's instance of taking a test.
type Attempt struct {
	ID         uuid.UUID     `json:"id"`
	TestID     uuid.UUID     `json:"test_id"`
	StudentID  int           `json:"student_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     AttemptStatus `json:"status"`
	// NavOverride raises the test's base violation budget for this
	// attempt. Applied by staff; takes effect on the next content load.
	NavOverride int `json:"nav_override"`
}

// AttemptContent is the immutable content payload returned once per
// session: questions or problems plus the attempt parameters the client
// countdown and violation policy are built from.
type AttemptContent struct {
	TestType        TestType   `json:"test_type"`
	Questions       []Question `json:"questions,omitempty"`
	Problems        []Problem  `json:"problems,omitempty"`
	MaxNavigations  int        `json:"max_navigations"`
	DurationMinutes int        `json:"duration_minutes"`
	StartedAt       time.Time  `json:"started_at"`
}

// SolutionSubmission is one problem's code, either a per-problem run or
// part of the final payload.
type SolutionSubmission struct {
	ProblemID  uuid.UUID `json:"problem_id" binding:"required"`
	LanguageID int       `json:"language_id" binding:"required,min=1"`
	Code       string    `json:"code"`
}

// SubmitAttemptRequest is the final, one-time submission payload.
type SubmitAttemptRequest struct {
	Answers   map[string][]string  `json:"answers,omitempty"`
	Solutions []SolutionSubmission `json:"solutions,omitempty" binding:"omitempty,dive"`
}

// MalpracticeRequest reports one violation event.
type MalpracticeRequest struct {
	Type string `json:"type" binding:"required,oneof=tab_switch console context_menu fullscreen_exit tab_limit_exceeded"`
}

// NavigationOverrideRequest raises an attempt's violation budget.
type NavigationOverrideRequest struct {
	Delta int `json:"delta" binding:"required,min=1,max=10"`
}

// SolutionResult is the immediate pass/fail signal of a per-problem run.
type SolutionResult struct {
	ProblemID uuid.UUID `json:"problem_id"`
	Passed    bool      `json:"passed"`
}
