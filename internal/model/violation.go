package model

import (
	"time"

	"github.com/google/uuid"
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

// CountsTowardBudget reports whether a violation type increments the
// navigation counter. Context-menu events are recorded but never counted.
func (t ViolationType) CountsTowardBudget() bool {
	return t == ViolationTabSwitch || t == ViolationConsole
}

// Violation is one appended integrity-violation record.
type Violation struct {
	ID         int64         `json:"id"`
	AttemptID  uuid.UUID     `json:"attempt_id"`
	Type       ViolationType `json:"type"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// MonitorEvent is the live proctoring-feed message published for each
// recorded violation.
type MonitorEvent struct {
	AttemptID  uuid.UUID     `json:"attempt_id"`
	TestID     uuid.UUID     `json:"test_id"`
	StudentID  int           `json:"student_id"`
	Type       ViolationType `json:"type"`
	NavCount   int64         `json:"nav_count"`
	RecordedAt time.Time     `json:"recorded_at"`
}
