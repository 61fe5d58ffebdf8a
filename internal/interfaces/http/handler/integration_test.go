package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appintegration "github.com/scafi/backend/internal/application/integration"
	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/domain/shared"
	"github.com/scafi/backend/internal/infrastructure/cache"
	"github.com/scafi/backend/internal/interfaces/http/dto"
	"github.com/scafi/backend/internal/interfaces/http/middleware"
	"github.com/scafi/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	stored  *integration.StoredRecord
	err     error
	record  *integration.AuditRecord
	findErr error
}

func (s *stubStore) Store(ctx context.Context, record *integration.IntegrationRecord) (*integration.StoredRecord, error) {
	return s.stored, s.err
}

func (s *stubStore) FindByRequestID(ctx context.Context, requestID string) (*integration.AuditRecord, error) {
	return s.record, s.findErr
}

func (s *stubStore) Ping(ctx context.Context) error { return nil }

type stubClient struct {
	resp *integration.DownstreamResponse
	err  error
}

func (c *stubClient) Send(ctx context.Context, record *integration.IntegrationRecord) (*integration.DownstreamResponse, error) {
	return c.resp, c.err
}

func (c *stubClient) Ping(ctx context.Context) error { return nil }

type stubNotifier struct{}

func (n *stubNotifier) NotifyFailure(ctx context.Context, record *integration.IntegrationRecord, outcome *integration.OperationOutcome) error {
	return nil
}

type testEnv struct {
	engine  *gin.Engine
	service *appintegration.IngestService
}

func newTestEnv(t *testing.T, store integration.RecordStore, client integration.DownstreamClient) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := appintegration.NewIngestService(store, client, &stubNotifier{}, zap.NewNop())
	t.Cleanup(service.Close)

	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { idem.Close() })

	h := NewIntegrationHandler(service, idem, shared.IdempotencyConfig{TTL: time.Minute, Enabled: true}, zap.NewNop())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine).Register(h).Setup()

	return &testEnv{engine: engine, service: service}
}

func anagraficaBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"codice":          "C0001",
		"tipo":            "C",
		"tipoSoggetto":    "S",
		"anagrafica":      "ACME SRL",
		"partitaIva":      "01234567890",
		"zucchettiNumber": "Z100",
	})
	require.NoError(t, err)
	return body
}

func postAnagrafica(env *testEnv, requestID string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/integration/anagrafiche", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func TestIntegrationHandler_SubmitAnagrafica(t *testing.T) {
	t.Run("accepts a valid record", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{stored: &integration.StoredRecord{ID: "id-1"}},
			&stubClient{resp: &integration.DownstreamResponse{StatusCode: 200, Attempts: 1}})

		requestID := uuid.NewString()
		w := postAnagrafica(env, requestID, anagraficaBody(t))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, requestID, w.Header().Get("X-Request-ID"))

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("rejects a payload missing required fields", func(t *testing.T) {
		env := newTestEnv(t, &stubStore{}, &stubClient{})

		body, _ := json.Marshal(map[string]any{"tipo": "C"})
		w := postAnagrafica(env, uuid.NewString(), body)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		env := newTestEnv(t, &stubStore{}, &stubClient{})

		w := postAnagrafica(env, uuid.NewString(), []byte(`{"codice":`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a duplicate request id", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{stored: &integration.StoredRecord{ID: "id-1"}},
			&stubClient{resp: &integration.DownstreamResponse{StatusCode: 200, Attempts: 1}})

		requestID := uuid.NewString()
		first := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusOK, first.Code)

		second := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusConflict, second.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeDuplicateRequest, resp.Error.Code)
	})

	t.Run("a request id is not consumed by a failed run", func(t *testing.T) {
		store := &stubStore{err: integration.NewPersistenceError(integration.PersistencePoolExhausted, nil)}
		env := newTestEnv(t, store,
			&stubClient{resp: &integration.DownstreamResponse{StatusCode: 200, Attempts: 1}})

		requestID := uuid.NewString()
		first := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusServiceUnavailable, first.Code)

		// the pool recovers; a retry with the same id must be reprocessed,
		// not rejected as a duplicate
		store.err = nil
		store.stored = &integration.StoredRecord{ID: "id-3"}
		second := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusOK, second.Code)

		third := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusConflict, third.Code)
	})

	t.Run("a partial failure consumes the request id", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{stored: &integration.StoredRecord{ID: "id-4"}},
			&stubClient{err: &integration.DownstreamError{
				Kind:       integration.DownstreamTimeout,
				StatusCode: 0,
				Attempts:   3,
			}})

		requestID := uuid.NewString()
		first := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusBadGateway, first.Code)

		// the audit copy exists, so a blind resubmission is a duplicate
		second := postAnagrafica(env, requestID, anagraficaBody(t))
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("maps statement timeout to 504", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{err: integration.NewPersistenceError(integration.PersistenceStatementTimeout, nil)},
			&stubClient{})

		w := postAnagrafica(env, uuid.NewString(), anagraficaBody(t))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})

	t.Run("maps pool exhaustion to 503", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{err: integration.NewPersistenceError(integration.PersistencePoolExhausted, nil)},
			&stubClient{})

		w := postAnagrafica(env, uuid.NewString(), anagraficaBody(t))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("maps constraint violation to 409", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{err: integration.NewPersistenceError(integration.PersistenceConstraintViolation, nil)},
			&stubClient{})

		w := postAnagrafica(env, uuid.NewString(), anagraficaBody(t))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("maps a forwarding failure to 502 with partial outcome", func(t *testing.T) {
		env := newTestEnv(t,
			&stubStore{stored: &integration.StoredRecord{ID: "id-9"}},
			&stubClient{err: &integration.DownstreamError{
				Kind:       integration.DownstreamServerError,
				StatusCode: 503,
				Attempts:   3,
			}})

		w := postAnagrafica(env, uuid.NewString(), anagraficaBody(t))

		assert.Equal(t, http.StatusBadGateway, w.Code)

		var resp struct {
			Success bool                         `json:"success"`
			Data    integration.OperationOutcome `json:"data"`
			Error   *dto.ErrorInfo               `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeDownstream, resp.Error.Code)
		assert.Equal(t, integration.StatusPartialFailure, resp.Data.Status)
		require.NotNil(t, resp.Data.Persistence)
		assert.Equal(t, "id-9", resp.Data.Persistence.PersistedID)
	})
}

func fatturaFields() map[string]any {
	return map[string]any{
		"CustomId":         7,
		"DocumentType":     "RI",
		"DocumentNumber":   "2024-001",
		"DocumentCompany":  "00100",
		"Customer":         "C0001",
		"Company":          "00100",
		"InvoiceDate":      "2024-01-15",
		"RegistrationDate": "2024-01-16",
		"CurrencyCode":     "EUR",
		"ExchangeRate":     1,
		"CustomerLedger":   []any{},
		"InvoiceDetails":   []any{},
		"PymtTerms":        "30GG",
	}
}

func postFattura(t *testing.T, env *testEnv, fields map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(fields)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/integration/fatture", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func TestIntegrationHandler_SubmitFattura(t *testing.T) {
	newFatturaEnv := func(t *testing.T) *testEnv {
		return newTestEnv(t,
			&stubStore{stored: &integration.StoredRecord{ID: "id-2"}},
			&stubClient{resp: &integration.DownstreamResponse{StatusCode: 200, Attempts: 1}})
	}

	t.Run("accepts a valid invoice", func(t *testing.T) {
		w := postFattura(t, newFatturaEnv(t), fatturaFields())
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("accepts zero-valued required numerics", func(t *testing.T) {
		fields := fatturaFields()
		fields["CustomId"] = 0
		fields["ExchangeRate"] = 0

		w := postFattura(t, newFatturaEnv(t), fields)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects an invoice without its ledger lines", func(t *testing.T) {
		fields := fatturaFields()
		delete(fields, "CustomerLedger")

		w := postFattura(t, newFatturaEnv(t), fields)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an invoice without an id", func(t *testing.T) {
		fields := fatturaFields()
		delete(fields, "CustomId")

		w := postFattura(t, newFatturaEnv(t), fields)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIntegrationHandler_GetRecord(t *testing.T) {
	t.Run("returns the audit copy", func(t *testing.T) {
		requestID := uuid.NewString()
		env := newTestEnv(t, &stubStore{record: &integration.AuditRecord{
			ID:          uuid.NewString(),
			RequestID:   requestID,
			Kind:        integration.KindAnagrafica,
			BusinessKey: "C0001",
			Payload:     map[string]any{"codice": "C0001"},
			ReceivedAt:  time.Now(),
		}}, &stubClient{})

		req := httptest.NewRequest(http.MethodGet, "/integration/records/"+requestID, nil)
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool                    `json:"success"`
			Data    dto.AuditRecordResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, requestID, resp.Data.RequestID)
		assert.Equal(t, "C0001", resp.Data.BusinessKey)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		env := newTestEnv(t, &stubStore{findErr: shared.ErrNotFound}, &stubClient{})

		req := httptest.NewRequest(http.MethodGet, "/integration/records/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
