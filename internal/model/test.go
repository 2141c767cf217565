package model

import (
	"time"

	"github.com/google/uuid"
)

// TestType distinguishes MCQ tests from coding tests.
type TestType string

const (
	TestTypeMCQ    TestType = "MCQ"
	TestTypeCoding TestType = "CODING"
)

// TestStatus enumerates the scheduling states of a test.
type TestStatus string

const (
	TestStatusDraft  TestStatus = "DRAFT"
	TestStatusLive   TestStatus = "LIVE"
	TestStatusClosed TestStatus = "CLOSED"
)

// Test represents a scheduled test definition.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Type            TestType   `json:"type"`
	Status          TestStatus `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	MaxNavigations  int        `json:"max_navigations"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// QuestionKind enumerates MCQ selection semantics.
type QuestionKind string

const (
	QuestionSingleChoice   QuestionKind = "SINGLE_CHOICE"
	QuestionMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
)

// Question is one MCQ question belonging to a test.
type Question struct {
	ID       uuid.UUID        `json:"id"`
	TestID   uuid.UUID        `json:"-"`
	Prompt   string           `json:"prompt"`
	Kind     QuestionKind     `json:"kind"`
	OrderNum int              `json:"-"`
	Options  []QuestionOption `json:"options"`
}

// QuestionOption is one selectable option of an MCQ question.
type QuestionOption struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	OrderNum int       `json:"-"`
}

// Problem is one coding problem belonging to a test.
type Problem struct {
	ID          uuid.UUID `json:"id"`
	TestID      uuid.UUID `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OrderNum    int       `json:"-"`
}

// LobbyTest is a test as shown in the student test list, overlaid with the
// student's own attempt state if one exists.
type LobbyTest struct {
	Test
	AttemptStatus *AttemptStatus `json:"attempt_status,omitempty"`
}
