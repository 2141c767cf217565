package worker

import (
	"context"
	"time"

	"github.com/proctorly/backend/internal/repository"
	"github.com/rs/zerolog"
)

const SweepInterval = 15 * time.Second

// DeadlineWorker periodically expires in-progress attempts whose hard
// deadline passed without a submission. A grace window lets a client
// auto-submit that fired at the deadline still land.
type DeadlineWorker struct {
	attemptRepo *repository.AttemptRepository
	grace       time.Duration
	log         zerolog.Logger
}

func NewDeadlineWorker(attemptRepo *repository.AttemptRepository, grace time.Duration, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		attemptRepo: attemptRepo,
		grace:       grace,
		log:         log.With().Str("component", "deadline_worker").Logger(),
	}
}

func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("grace", w.grace).Msg("DeadlineWorker started")

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("DeadlineWorker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DeadlineWorker) sweep(ctx context.Context) {
	expired, err := w.attemptRepo.ExpireOverdue(ctx, w.grace)
	if err != nil {
		w.log.Error().Err(err).Msg("Deadline sweep failed")
		return
	}
	if len(expired) > 0 {
		w.log.Info().Int("count", len(expired)).Msg("Expired overdue attempts")
	}
}
