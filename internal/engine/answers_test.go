package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSingleChoiceReplacesSelection(t *testing.T) {
	store := NewAnswerStore()
	q := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	for _, opt := range []uuid.UUID{a, b, c, a} {
		store.SetMCQSelection(q, opt, false)
		sel := store.SelectedOptions(q)
		assert.Len(t, sel, 1, "single-choice selection must always have exactly one option")
		assert.Equal(t, opt, sel[0], "most recent choice must win")
	}
}

func TestMultipleChoiceToggle(t *testing.T) {
	store := NewAnswerStore()
	q := uuid.New()
	a, b := uuid.New(), uuid.New()

	store.SetMCQSelection(q, a, true)
	store.SetMCQSelection(q, b, true)
	assert.True(t, store.IsSelected(q, a))
	assert.True(t, store.IsSelected(q, b))

	// Toggling twice restores the original membership.
	store.SetMCQSelection(q, a, true)
	assert.False(t, store.IsSelected(q, a))
	store.SetMCQSelection(q, a, true)
	assert.True(t, store.IsSelected(q, a))
	assert.True(t, store.IsSelected(q, b), "other selections are untouched by the toggle")
}

func TestAnswersSnapshotSkipsEmptySelections(t *testing.T) {
	store := NewAnswerStore()
	q1, q2 := uuid.New(), uuid.New()
	a := uuid.New()

	store.SetMCQSelection(q1, a, true)
	store.SetMCQSelection(q2, a, true)
	store.SetMCQSelection(q2, a, true) // toggled back off

	answers := store.Answers()
	assert.Len(t, answers, 1)
	assert.Equal(t, []uuid.UUID{a}, answers[q1])
	assert.Equal(t, 1, store.AnsweredCount())
}

func TestCodeAndSharedLanguage(t *testing.T) {
	store := NewAnswerStore()
	p1, p2 := uuid.New(), uuid.New()

	store.SetCode(p1, "print(1)")
	store.SetCode(p1, "print(2)")
	store.SetCode(p2, "pass")
	assert.Equal(t, "print(2)", store.Code(p1), "setCode overwrites")
	assert.Equal(t, "pass", store.Code(p2))

	store.SetLanguage(42)
	store.SetLanguage(7)
	assert.Equal(t, 7, store.Language(), "language is a single shared choice")
}
