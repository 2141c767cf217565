package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proctorly/backend/internal/engine"
)

type stubService struct {
	content *engine.AttemptContent
	langs   []engine.Language
}

func (s *stubService) GetCurrentAttempt(ctx context.Context, testID uuid.UUID) (*engine.AttemptRef, error) {
	return nil, nil
}

func (s *stubService) StartAttempt(ctx context.Context, testID uuid.UUID) (*engine.AttemptRef, error) {
	return &engine.AttemptRef{AttemptID: uuid.New()}, nil
}

func (s *stubService) GetQuestions(ctx context.Context, attemptID uuid.UUID) (*engine.AttemptContent, error) {
	return s.content, nil
}

func (s *stubService) ListProgrammingLanguages(ctx context.Context) ([]engine.Language, error) {
	return s.langs, nil
}

func (s *stubService) SubmitCoding(ctx context.Context, attemptID uuid.UUID, sol engine.CodingSolution) (bool, error) {
	return true, nil
}

func (s *stubService) Submit(ctx context.Context, attemptID uuid.UUID, payload engine.SubmitPayload) error {
	return nil
}

func (s *stubService) RecordMalpractice(ctx context.Context, attemptID uuid.UUID, vtype engine.ViolationType) error {
	return nil
}

func codingModel(t *testing.T, problems ...engine.Problem) Model {
	t.Helper()
	svc := &stubService{
		content: &engine.AttemptContent{
			TestType:        engine.TestTypeCoding,
			Problems:        problems,
			MaxNavigations:  3,
			DurationMinutes: 60,
			StartedAt:       time.Now(),
		},
		langs: []engine.Language{{ID: 1, Name: "Python"}},
	}

	session := engine.NewSession(engine.SessionConfig{Service: svc}, zerolog.Nop())
	t.Cleanup(session.Close)
	require.NoError(t, session.Acquire(context.Background(), uuid.New(), uuid.Nil))
	require.NoError(t, session.LoadContent(context.Background()))

	source := NewTerminalSignalSource()
	t.Cleanup(func() { _ = source.Close() })
	return New(session, source)
}

func TestRunAndNextOnLastProblemOpensConfirm(t *testing.T) {
	m := codingModel(t, engine.Problem{ID: uuid.New(), Title: "Two Sum"})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, screenConfirm, updated.(Model).screen)
}

func TestRunAndNextMidwayStaysOnActiveScreen(t *testing.T) {
	m := codingModel(t,
		engine.Problem{ID: uuid.New()},
		engine.Problem{ID: uuid.New()},
	)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, screenActive, updated.(Model).screen)
	assert.NotNil(t, cmd, "non-final advance runs the problem and moves on asynchronously")
}
