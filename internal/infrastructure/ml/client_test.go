package ml

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

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
)

var testParams = domain.GenerationParams{
	MaxInputTokens: 512,
	MaxLength:      150,
	MinLength:      40,
	NumBeams:       4,
	LengthPenalty:  2.0,
	EarlyStopping:  true,
}

func newTestClient(endpoint string, retries uint64) *Client {
	c := NewClient(config.MLConfig{InferenceURL: endpoint, APIKey: "hf-token", Timeout: 2 * time.Second, MaxRetries: retries})
	c.baseDelay = time.Millisecond
	return c
}

func TestGenerateSendsDecodingParameters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "long article text", req.Inputs)
		assert.Equal(t, 150, req.Parameters.MaxLength)
		assert.Equal(t, 40, req.Parameters.MinLength)
		assert.Equal(t, 4, req.Parameters.NumBeams)
		assert.Equal(t, 2.0, req.Parameters.LengthPenalty)
		assert.True(t, req.Parameters.EarlyStopping)
		assert.False(t, req.Parameters.DoSample)
		assert.Equal(t, "only_first", req.Parameters.Truncation)
		assert.True(t, req.Options.WaitForModel)

		_, _ = w.Write([]byte(`[{"summary_text": " A short summary. "}]`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL, 0).Generate(context.Background(), "long article text", testParams)
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
}

func TestGenerateAcceptsObjectResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"summary": "object form"}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL, 0).Generate(context.Background(), "text", testParams)
	require.NoError(t, err)
	assert.Equal(t, "object form", out)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"summary_text": "eventually"}]`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL, 3).Generate(context.Background(), "text", testParams)
	require.NoError(t, err)
	assert.Equal(t, "eventually", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 2).Generate(context.Background(), "text", testParams)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad input"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).Generate(context.Background(), "text", testParams)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeSummary(t *testing.T) {
	t.Parallel()

	out, err := decodeSummary([]byte(`[{"generated_text":"t5 style"}]`))
	require.NoError(t, err)
	assert.Equal(t, "t5 style", out)

	_, err = decodeSummary([]byte(`[]`))
	assert.Error(t, err)

	_, err = decodeSummary([]byte(``))
	assert.Error(t, err)

	_, err = decodeSummary([]byte(`<html>`))
	assert.Error(t, err)
}
