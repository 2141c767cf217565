package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorly/backend/internal/config"
	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Attempt lifecycle errors.
var (
	ErrTestNotLive      = errors.New("test is not open for attempts")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptNotOwned  = errors.New("attempt belongs to another student")
	ErrAttemptConcluded = errors.New("attempt has already concluded")
)

const testContentTTL = 10 * time.Minute

// AttemptService handles the attempt lifecycle: lobby, start, content
// delivery, solution runs, and final submission.
type AttemptService struct {
	testRepo    *repository.TestRepository
	attemptRepo *repository.AttemptRepository
	langRepo    *repository.LanguageRepository
	rdb         *redis.Client
	cfg         *config.Config
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	testRepo *repository.TestRepository,
	attemptRepo *repository.AttemptRepository,
	langRepo *repository.LanguageRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		testRepo:    testRepo,
		attemptRepo: attemptRepo,
		langRepo:    langRepo,
		rdb:         rdb,
		cfg:         cfg,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// GetLobby returns all live tests overlaid with the student's own attempt
// state where one exists.
func (s *AttemptService) GetLobby(ctx context.Context, studentID int) ([]model.LobbyTest, error) {
	tests, err := s.testRepo.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live tests: %w", err)
	}

	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attemptMap := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		attemptMap[attempts[i].TestID] = &attempts[i]
	}

	lobby := make([]model.LobbyTest, 0, len(tests))
	for _, t := range tests {
		entry := model.LobbyTest{Test: t}
		if a, ok := attemptMap[t.ID]; ok {
			entry.AttemptStatus = &a.Status
		}
		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// GetCurrentAttempt returns the student's attempt for a test, or
// ErrAttemptNotFound if none exists yet.
func (s *AttemptService) GetCurrentAttempt(ctx context.Context, testID uuid.UUID, studentID int) (*model.Attempt, error) {
	a, err := s.attemptRepo.GetByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// StartAttempt creates the student's attempt for a live test. Starting is
// idempotent: if an attempt already exists it is returned as-is, whatever
// its status, so a reconnecting client always lands on the same row.
func (s *AttemptService) StartAttempt(ctx context.Context, testID uuid.UUID, studentID int) (*model.Attempt, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotLive
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test.Status != model.TestStatusLive {
		return nil, ErrTestNotLive
	}

	existing, err := s.attemptRepo.GetByTestAndStudent(ctx, testID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		// Re-prime the start-time cache in case it was evicted.
		s.cacheStartTime(ctx, existing.ID, existing.StartedAt)
		return existing, nil
	}

	attempt := &model.Attempt{
		TestID:    testID,
		StudentID: studentID,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start: the unique constraint swallowed our insert,
			// fetch the winner's row.
			winner, fetchErr := s.attemptRepo.GetByTestAndStudent(ctx, testID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			s.cacheStartTime(ctx, winner.ID, winner.StartedAt)
			return winner, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheStartTime(ctx, attempt.ID, attempt.StartedAt)
	return attempt, nil
}

// GetContent returns the full content payload for an open attempt: the
// question or problem set plus the parameters the client builds its
// countdown and violation policy from.
func (s *AttemptService) GetContent(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.AttemptContent, error) {
	attempt, err := s.getOpenAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	test, err := s.testRepo.GetByID(ctx, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	content := &model.AttemptContent{
		TestType:        test.Type,
		MaxNavigations:  s.maxNavigations(test, attempt),
		DurationMinutes: test.DurationMinutes,
		StartedAt:       s.resolveStartTime(ctx, attempt),
	}

	questions, problems, err := s.loadTestContent(ctx, test)
	if err != nil {
		return nil, err
	}
	content.Questions = questions
	content.Problems = problems

	return content, nil
}

// ListLanguages returns the programming-language catalog.
func (s *AttemptService) ListLanguages(ctx context.Context) ([]model.Language, error) {
	return s.langRepo.ListAll(ctx)
}

// SubmitSolution records one problem's code for an open attempt and returns
// an immediate pass/fail signal. The current check is a syntactic
// plausibility gate; full judging happens offline after the test closes.
func (s *AttemptService) SubmitSolution(ctx context.Context, attemptID uuid.UUID, studentID int, sol model.SolutionSubmission) (*model.SolutionResult, error) {
	if _, err := s.getOpenAttempt(ctx, attemptID, studentID); err != nil {
		return nil, err
	}

	passed := strings.TrimSpace(sol.Code) != ""
	if err := s.attemptRepo.UpsertSolution(ctx, attemptID, sol, passed); err != nil {
		return nil, fmt.Errorf("save solution: %w", err)
	}

	return &model.SolutionResult{ProblemID: sol.ProblemID, Passed: passed}, nil
}

// Submit concludes an open attempt with its final payload. The conditional
// status update makes a duplicate call a no-op that reports
// ErrAttemptConcluded.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, studentID int, req model.SubmitAttemptRequest) error {
	if _, err := s.getOpenAttempt(ctx, attemptID, studentID); err != nil {
		return err
	}

	if len(req.Answers) > 0 {
		if err := s.attemptRepo.SaveAnswers(ctx, attemptID, req.Answers); err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
	}
	for _, sol := range req.Solutions {
		passed := strings.TrimSpace(sol.Code) != ""
		if err := s.attemptRepo.UpsertSolution(ctx, attemptID, sol, passed); err != nil {
			return fmt.Errorf("save solution: %w", err)
		}
	}

	concluded, err := s.attemptRepo.MarkSubmitted(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if !concluded {
		return ErrAttemptConcluded
	}

	s.cleanupAttemptCache(ctx, attemptID)
	return nil
}

// ApplyNavigationOverride raises an open attempt's violation budget. The
// raise reaches the student on their next content load.
func (s *AttemptService) ApplyNavigationOverride(ctx context.Context, attemptID uuid.UUID, delta int) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptConcluded
	}

	if err := s.attemptRepo.IncrementNavOverride(ctx, attemptID, delta); err != nil {
		return nil, fmt.Errorf("increment override: %w", err)
	}
	attempt.NavOverride += delta
	return attempt, nil
}

// getOpenAttempt loads an attempt and verifies ownership and that it is
// still IN_PROGRESS.
func (s *AttemptService) getOpenAttempt(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrAttemptNotOwned
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptConcluded
	}
	return attempt, nil
}

// maxNavigations resolves an attempt's effective violation budget.
func (s *AttemptService) maxNavigations(test *model.Test, attempt *model.Attempt) int {
	base := test.MaxNavigations
	if base <= 0 {
		base = s.cfg.DefaultMaxNavigations
	}
	return base + attempt.NavOverride
}

// cacheStartTime stores an attempt's start unix timestamp in Redis. Cache
// writes are best-effort; resolveStartTime self-heals from Postgres.
func (s *AttemptService) cacheStartTime(ctx context.Context, attemptID uuid.UUID, startedAt time.Time) {
	key := config.CacheKey.AttemptStartKey(attemptID.String())
	if err := s.rdb.Set(ctx, key, startedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("failed to cache start time")
	}
}

// resolveStartTime reads the attempt's start time from Redis, falling back
// to the Postgres row on a cache miss and re-priming the cache.
func (s *AttemptService) resolveStartTime(ctx context.Context, attempt *model.Attempt) time.Time {
	key := config.CacheKey.AttemptStartKey(attempt.ID.String())
	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		if unix, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			return time.Unix(unix, 0)
		}
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("redis error reading start time")
	}

	// Source of truth. Self-heal the cache for the next request.
	s.cacheStartTime(ctx, attempt.ID, attempt.StartedAt)
	return attempt.StartedAt
}

// cachedContent is the Redis representation of a test's content payload.
type cachedContent struct {
	Questions []model.Question `json:"questions,omitempty"`
	Problems  []model.Problem  `json:"problems,omitempty"`
}

// loadTestContent returns a test's question or problem set, served from
// Redis when warm and rebuilt from Postgres otherwise.
func (s *AttemptService) loadTestContent(ctx context.Context, test *model.Test) ([]model.Question, []model.Problem, error) {
	key := config.CacheKey.TestContentKey(test.ID.String())

	if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var cached cachedContent
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached.Questions, cached.Problems, nil
		}
		// Corrupt cache entry, rebuild below.
		_ = s.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("test_id", test.ID.String()).Msg("redis error reading content cache")
	}

	var cached cachedContent
	var err error
	switch test.Type {
	case model.TestTypeMCQ:
		cached.Questions, err = s.testRepo.ListQuestions(ctx, test.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list questions: %w", err)
		}
	case model.TestTypeCoding:
		cached.Problems, err = s.testRepo.ListProblems(ctx, test.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list problems: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unknown test type %q", test.Type)
	}

	if raw, marshalErr := json.Marshal(cached); marshalErr == nil {
		if setErr := s.rdb.Set(ctx, key, raw, testContentTTL).Err(); setErr != nil {
			s.log.Warn().Err(setErr).Str("test_id", test.ID.String()).Msg("failed to cache content")
		}
	}

	return cached.Questions, cached.Problems, nil
}

// cleanupAttemptCache drops the attempt's hot keys once it concludes.
func (s *AttemptService) cleanupAttemptCache(ctx context.Context, attemptID uuid.UUID) {
	keys := []string{
		config.CacheKey.AttemptStartKey(attemptID.String()),
		config.CacheKey.AttemptNavCountKey(attemptID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("failed to clean attempt cache")
	}
}
