package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/proctorly/backend/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeJSON(data interface{}) []byte {
	raw, _ := json.Marshal(map[string]interface{}{"data": data})
	return raw
}

func TestGetCurrentAttempt(t *testing.T) {
	testID := uuid.New()
	attemptID := uuid.New()

	t.Run("existing attempt", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v1/student/tests/"+testID.String()+"/attempt", r.URL.Path)
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			w.Write(envelopeJSON(map[string]interface{}{
				"attempt": map[string]string{"id": attemptID.String()},
			}))
		}))
		defer srv.Close()

		c := New(srv.URL, "token-123")
		ref, err := c.GetCurrentAttempt(context.Background(), testID)
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, attemptID, ref.AttemptID)
	})

	t.Run("no attempt yet", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(envelopeJSON(map[string]interface{}{"attempt": nil}))
		}))
		defer srv.Close()

		c := New(srv.URL, "token-123")
		ref, err := c.GetCurrentAttempt(context.Background(), testID)
		require.NoError(t, err)
		assert.Nil(t, ref)
	})
}

func TestSubmitCoding(t *testing.T) {
	attemptID := uuid.New()
	problemID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var sol engine.CodingSolution
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sol))
		assert.Equal(t, problemID, sol.ProblemID)
		assert.Equal(t, 2, sol.LanguageID)

		w.Write(envelopeJSON(map[string]interface{}{
			"problem_id": problemID.String(),
			"passed":     true,
		}))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")
	passed, err := c.SubmitCoding(context.Background(), attemptID, engine.CodingSolution{
		ProblemID:  problemID,
		LanguageID: 2,
		Code:       "print(42)",
	})
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestSubmitTranslatesAnswerKeys(t *testing.T) {
	attemptID := uuid.New()
	questionID := uuid.New()
	optionID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Answers map[string][]string `json:"answers"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{optionID.String()}, body.Answers[questionID.String()])
		w.Write(envelopeJSON(map[string]string{"status": "SUBMITTED"}))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")
	err := c.Submit(context.Background(), attemptID, engine.SubmitPayload{
		Answers: map[uuid.UUID][]uuid.UUID{questionID: {optionID}},
	})
	require.NoError(t, err)
}

func TestEnvelopeErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "ATTEMPT_CONCLUDED",
				"message": "attempt has already concluded",
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "t")
	err := c.RecordMalpractice(context.Background(), uuid.New(), engine.ViolationTabSwitch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATTEMPT_CONCLUDED")
}
