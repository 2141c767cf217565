package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorly/backend/internal/config"
	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ViolationPayload is the queue item drained by the violation worker.
type ViolationPayload struct {
	AttemptID string `json:"attempt_id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// MalpracticeService records integrity-violation reports: it queues the
// durable write, maintains the running counter, and feeds the live
// proctoring channel.
type MalpracticeService struct {
	attemptRepo   *repository.AttemptRepository
	violationRepo *repository.ViolationRepository
	rdb           *redis.Client
	log           zerolog.Logger
}

// NewMalpracticeService creates a new MalpracticeService.
func NewMalpracticeService(
	attemptRepo *repository.AttemptRepository,
	violationRepo *repository.ViolationRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *MalpracticeService {
	return &MalpracticeService{
		attemptRepo:   attemptRepo,
		violationRepo: violationRepo,
		rdb:           rdb,
		log:           log.With().Str("component", "malpractice_service").Logger(),
	}
}

// Record handles one violation report from an open attempt. Every report is
// queued for durable persistence and published to the test's monitor
// channel; only counting types bump the running counter, and
// tab_limit_exceeded additionally terminates the attempt.
func (s *MalpracticeService) Record(ctx context.Context, attemptID uuid.UUID, studentID int, vtype model.ViolationType) error {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return ErrAttemptNotOwned
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return ErrAttemptConcluded
	}

	now := time.Now()

	payload, err := json.Marshal(ViolationPayload{
		AttemptID: attemptID.String(),
		Type:      string(vtype),
		Timestamp: now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue violation: %w", err)
	}

	var navCount int64
	if vtype.CountsTowardBudget() {
		navCount, err = s.rdb.Incr(ctx, config.CacheKey.AttemptNavCountKey(attemptID.String())).Result()
		if err != nil {
			// Counter is advisory; the violation itself is already queued.
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("failed to bump nav counter")
		}
	}

	if vtype == model.ViolationTabLimitExceeded {
		if err := s.attemptRepo.MarkTerminated(ctx, attemptID); err != nil {
			return fmt.Errorf("terminate attempt: %w", err)
		}
	}

	s.publishMonitorEvent(ctx, model.MonitorEvent{
		AttemptID:  attemptID,
		TestID:     attempt.TestID,
		StudentID:  attempt.StudentID,
		Type:       vtype,
		NavCount:   navCount,
		RecordedAt: now,
	})

	return nil
}

// ListByAttempt returns an attempt's full violation log, oldest first.
func (s *MalpracticeService) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	return s.violationRepo.ListByAttempt(ctx, attemptID)
}

// CountByTest returns per-student violation totals for a test.
func (s *MalpracticeService) CountByTest(ctx context.Context, testID uuid.UUID) (map[int]int64, error) {
	return s.violationRepo.CountByTest(ctx, testID)
}

// publishMonitorEvent fans one event out to the test's live proctoring
// channel. Best-effort: a missed feed message never fails the report.
func (s *MalpracticeService) publishMonitorEvent(ctx context.Context, event model.MonitorEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal monitor event")
		return
	}
	channel := config.CacheKey.TestMonitorChannel(event.TestID.String())
	if err := s.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("failed to publish monitor event")
	}
}
