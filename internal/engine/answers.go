package engine

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// AnswerStore holds in-progress responses keyed by question/problem id.
// Pure state container: no validation, no side effects beyond in-memory
// mutation. Safe for concurrent use.
type AnswerStore struct {
	mu         sync.RWMutex
	selections map[uuid.UUID]map[uuid.UUID]struct{}
	code       map[uuid.UUID]string
	languageID int
}

// NewAnswerStore creates an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		selections: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		code:       make(map[uuid.UUID]string),
	}
}

// SetMCQSelection records an option choice. Single-choice replaces the
// entire selection set with the new option; multiple-choice toggles the
// option's membership.
func (s *AnswerStore) SetMCQSelection(questionID, optionID uuid.UUID, multiple bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !multiple {
		s.selections[questionID] = map[uuid.UUID]struct{}{optionID: {}}
		return
	}

	set, ok := s.selections[questionID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.selections[questionID] = set
	}
	if _, selected := set[optionID]; selected {
		delete(set, optionID)
	} else {
		set[optionID] = struct{}{}
	}
}

// IsSelected reports whether an option is currently selected.
func (s *AnswerStore) IsSelected(questionID, optionID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selections[questionID][optionID]
	return ok
}

// SelectedOptions returns the current selection for a question, sorted for
// deterministic output. Empty slice if nothing is selected.
func (s *AnswerStore) SelectedOptions(questionID uuid.UUID) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.selections[questionID])
}

// Answers snapshots all non-empty selections for final submission.
func (s *AnswerStore) Answers() map[uuid.UUID][]uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID][]uuid.UUID, len(s.selections))
	for qid, set := range s.selections {
		if len(set) == 0 {
			continue
		}
		out[qid] = sortedIDs(set)
	}
	return out
}

// AnsweredCount returns how many questions currently have a selection.
func (s *AnswerStore) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, set := range s.selections {
		if len(set) > 0 {
			n++
		}
	}
	return n
}

// SetCode overwrites the stored source for a problem.
func (s *AnswerStore) SetCode(problemID uuid.UUID, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[problemID] = source
}

// Code returns the stored source for a problem, empty if none.
func (s *AnswerStore) Code(problemID uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code[problemID]
}

// SetLanguage overwrites the single language choice shared across all
// problems in the attempt.
func (s *AnswerStore) SetLanguage(languageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languageID = languageID
}

// Language returns the shared language choice, zero if never set.
func (s *AnswerStore) Language() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.languageID
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
