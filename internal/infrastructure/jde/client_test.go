package jde

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string, attempts int) (*Client, *[]time.Duration) {
	cfg := &config.JDEConfig{
		BaseURL:         baseURL,
		AnagrafichePath: "/api/anagrafiche",
		FatturePath:     "/api/fatture",
		HealthPath:      "/health",
	}
	policy := integration.RetryPolicy{
		Attempts:    attempts,
		BaseBackoff: 300 * time.Millisecond,
		Timeout:     2 * time.Second,
	}
	client := NewClient(cfg, policy, integration.ModeLive, zap.NewNop())

	waits := &[]time.Duration{}
	client.wait = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return client, waits
}

func anagraficaRecord() *integration.IntegrationRecord {
	return integration.NewRecord(uuid.NewString(), integration.KindAnagrafica, map[string]any{
		"codice":          "C0001",
		"tipo":            "C",
		"tipoSoggetto":    "S",
		"anagrafica":      "ACME SRL",
		"zucchettiNumber": "Z100",
	})
}

func TestClient_Send(t *testing.T) {
	t.Run("forwards record and returns downstream response", func(t *testing.T) {
		var calls atomic.Int32
		var gotRequestID, gotContentType, gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			gotRequestID = r.Header.Get("X-Request-ID")
			gotContentType = r.Header.Get("Content-Type")
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"accepted":true}`))
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 3)
		record := anagraficaRecord()

		resp, err := client.Send(context.Background(), record)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"accepted":true}`, resp.Body)
		assert.Equal(t, 1, resp.Attempts)
		assert.False(t, resp.Synthetic)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, record.RequestID, gotRequestID)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "/api/anagrafiche", gotPath)
	})

	t.Run("routes fatture to the fatture endpoint", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 1)
		record := integration.NewRecord(uuid.NewString(), integration.KindFattura, map[string]any{
			"DocumentNumber": 42,
		})

		_, err := client.Send(context.Background(), record)

		require.NoError(t, err)
		assert.Equal(t, "/api/fatture", gotPath)
	})

	t.Run("retries 5xx until the attempt budget is exhausted", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client, waits := newTestClient(server.URL, 3)

		_, err := client.Send(context.Background(), anagraficaRecord())

		var dErr *integration.DownstreamError
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, integration.DownstreamServerError, dErr.Kind)
		assert.Equal(t, http.StatusServiceUnavailable, dErr.StatusCode)
		assert.Equal(t, 3, dErr.Attempts)
		assert.Equal(t, int32(3), calls.Load())
		// 300ms before the first retry, doubled before the second
		assert.Equal(t, []time.Duration{300 * time.Millisecond, 600 * time.Millisecond}, *waits)
	})

	t.Run("recovers when a retry succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 3)

		resp, err := client.Send(context.Background(), anagraficaRecord())

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, 3, resp.Attempts)
	})

	t.Run("does not retry 4xx rejections", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"bad payload"}`))
		}))
		defer server.Close()

		client, waits := newTestClient(server.URL, 3)

		_, err := client.Send(context.Background(), anagraficaRecord())

		var dErr *integration.DownstreamError
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, integration.DownstreamClientRejected, dErr.Kind)
		assert.Equal(t, http.StatusUnprocessableEntity, dErr.StatusCode)
		assert.Equal(t, `{"error":"bad payload"}`, dErr.Body)
		assert.Equal(t, 1, dErr.Attempts)
		assert.Equal(t, int32(1), calls.Load())
		assert.Empty(t, *waits)
	})

	t.Run("classifies unreachable host as connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // nothing listening anymore

		client, _ := newTestClient(server.URL, 2)

		_, err := client.Send(context.Background(), anagraficaRecord())

		var dErr *integration.DownstreamError
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, integration.DownstreamConnectionRefused, dErr.Kind)
		assert.Equal(t, 2, dErr.Attempts)
	})

	t.Run("sends credentials in the authorization header", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 1)
		client.cfg.Credentials = "Bearer secret-token"

		_, err := client.Send(context.Background(), anagraficaRecord())

		require.NoError(t, err)
		assert.Equal(t, "Bearer secret-token", gotAuth)
	})

	t.Run("dry-run returns synthetic success without any call", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		cfg := &config.JDEConfig{BaseURL: server.URL, AnagrafichePath: "/api/anagrafiche"}
		policy := integration.RetryPolicy{Attempts: 3, BaseBackoff: time.Millisecond, Timeout: time.Second}
		client := NewClient(cfg, policy, integration.ModeDryRun, zap.NewNop())

		resp, err := client.Send(context.Background(), anagraficaRecord())

		require.NoError(t, err)
		assert.True(t, resp.Synthetic)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(0), calls.Load())
	})
}

func TestClient_Ping(t *testing.T) {
	t.Run("healthy endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 1)

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("any response below 500 counts as reachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 1)

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("5xx fails the probe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client, _ := newTestClient(server.URL, 1)

		assert.Error(t, client.Ping(context.Background()))
	})

	t.Run("unreachable host fails the probe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client, _ := newTestClient(server.URL, 1)

		assert.Error(t, client.Ping(context.Background()))
	})

	t.Run("dry-run always reports reachable", func(t *testing.T) {
		cfg := &config.JDEConfig{BaseURL: "http://127.0.0.1:1", HealthPath: "/health"}
		policy := integration.RetryPolicy{Attempts: 1, Timeout: time.Second}
		client := NewClient(cfg, policy, integration.ModeDryRun, zap.NewNop())

		assert.NoError(t, client.Ping(context.Background()))
	})
}
