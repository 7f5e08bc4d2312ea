package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

func testClient(baseURL string, maxRetries int) *Client {
	return NewClient(ClientConfig{
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		MaxRetries:  maxRetries,
		MaxTokens:   150,
		Temperature: 0.3,
	}, logger.NewNoOpLogger())
}

func TestClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["prompt"], "Customer Question: what are your hours")
		assert.Contains(t, body["prompt"], "Opening hours")
		assert.EqualValues(t, 150, body["max_tokens"])

		w.Write([]byte(`{"text": "We are open 11 to 9 on weekdays.", "confidence": 0.9}`))
	}))
	defer server.Close()

	c := testClient(server.URL, 0)
	text, provenance, err := c.Generate(context.Background(), "what are your hours",
		[]Message{{Role: "user", Content: "hi"}},
		[]Passage{{Text: "Opening hours: Monday 11:00 AM - 9:00 PM.", Category: "hours_location"}})

	require.NoError(t, err)
	assert.Equal(t, "We are open 11 to 9 on weekdays.", text)
	assert.Equal(t, ProvenanceLLM, provenance)
}

func TestClient_Generate_EmptyTextGuard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "   ", "confidence": 0.2}`))
	}))
	defer server.Close()

	c := testClient(server.URL, 0)
	text, _, err := c.Generate(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "I don't have enough information to answer that question.", text)
}

func TestClient_Generate_FailureYieldsApology(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := testClient(server.URL, 1)
	text, provenance, err := c.Generate(context.Background(), "q", nil, nil)

	require.Error(t, err)
	assert.Equal(t, ProvenanceLLMError, provenance)
	assert.NotEmpty(t, text, "failure still yields a speakable apology")

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeGenerationFailed, stdErr.Code)
}

func TestClient_Generate_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"text": "answer", "confidence": 0.8}`))
	}))
	defer server.Close()

	c := testClient(server.URL, 3)
	text, provenance, err := c.Generate(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, ProvenanceLLM, provenance)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_Generate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"text": "too late"}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	}, logger.NewNoOpLogger())

	_, provenance, err := c.Generate(context.Background(), "q", nil, nil)
	require.Error(t, err)
	assert.Equal(t, ProvenanceLLMError, provenance)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeGenerationTimeout, stdErr.Code)
}

func TestClient_ClassifyIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/parse-intent", r.URL.Path)
		w.Write([]byte(`{"intent": "hours", "confidence": 0.95}`))
	}))
	defer server.Close()

	c := testClient(server.URL, 0)
	answer, err := c.ClassifyIntent(context.Background(), "when do you close")
	require.NoError(t, err)
	assert.Equal(t, "hours", answer)
}
