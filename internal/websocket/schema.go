package websocket

import "github.com/proctorly/backend/internal/model"

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventViolation Event = "violation"
	EventSnapshot  Event = "snapshot"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// ViolationMessage carries one live violation to the proctoring feed.
type ViolationMessage struct {
	Event Event              `json:"event"`
	Data  model.MonitorEvent `json:"data"`
}

// SnapshotMessage carries the per-student violation totals sent once on
// connect, so the proctor view starts from current state.
type SnapshotMessage struct {
	Event  Event         `json:"event"`
	Counts map[int]int64 `json:"counts"` // student_id → violation total
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}
