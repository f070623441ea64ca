package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.APIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}
	return NewClient(cfg, testLogger(), opts...)
}

func Test_Client_Get_DecodesResponse(t *testing.T) {
	// given
	type payload struct {
		Title string `json:"title"`
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products/1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(payload{Title: "Essence Mascara"})
	}))

	// when
	var out payload
	err := client.Get(context.Background(), "/products/1", &out)

	// then
	require.NoError(t, err)
	assert.Equal(t, "Essence Mascara", out.Title)
}

func Test_Client_Post_EncodesBody(t *testing.T) {
	// given
	var received map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 51}`))
	}))

	// when
	var out map[string]any
	err := client.Post(context.Background(), "/carts/add", map[string]any{"userId": 33}, &out)

	// then
	require.NoError(t, err)
	assert.Equal(t, float64(33), received["userId"])
	assert.Equal(t, float64(51), out["id"])
}

func Test_Client_NonSuccessStatusBecomesTypedError(t *testing.T) {
	// given
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Product with id '999' not found"}`))
	}))

	// when
	err := client.Get(context.Background(), "/products/999", nil)

	// then
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.True(t, IsClientError(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, string(apiErr.Body), "not found")
}

func Test_Client_ContextCancellationAbortsRequest(t *testing.T) {
	// given
	blocked := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer close(blocked)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// when
	err := client.Get(ctx, "/products/1", nil)

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Client_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	// given
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 2,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	}))

	// when: hammer until the breaker trips
	var err error
	for i := 0; i < 5; i++ {
		err = client.Get(context.Background(), "/products/1", nil)
		require.Error(t, err)
	}

	// then
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func Test_Client_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	// given
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 2,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	}))

	// when: far more 404s than the trip threshold
	var err error
	for i := 0; i < 10; i++ {
		err = client.Get(context.Background(), "/products/999", nil)
	}

	// then: still a plain status error, never an open breaker
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
}
