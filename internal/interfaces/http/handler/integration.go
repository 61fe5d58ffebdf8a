package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appintegration "github.com/scafi/backend/internal/application/integration"
	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/domain/shared"
	"github.com/scafi/backend/internal/interfaces/http/dto"
	"github.com/scafi/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// IntegrationHandler exposes the ingestion endpoints
type IntegrationHandler struct {
	BaseHandler
	service     *appintegration.IngestService
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	log         *zap.Logger
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(
	service *appintegration.IngestService,
	idempotency shared.IdempotencyStore,
	idemCfg shared.IdempotencyConfig,
	log *zap.Logger,
) *IntegrationHandler {
	return &IntegrationHandler{
		service:     service,
		idempotency: idempotency,
		idemCfg:     idemCfg,
		log:         log,
	}
}

// RegisterRoutes registers integration routes
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/integration")
	{
		group.POST("/anagrafiche", h.SubmitAnagrafica)
		group.POST("/fatture", h.SubmitFattura)
		group.GET("/records/:request_id", h.GetRecord)
	}
}

// SubmitAnagrafica accepts one master-data record
func (h *IntegrationHandler) SubmitAnagrafica(c *gin.Context) {
	var req dto.AnagraficaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}
	h.submit(c, integration.KindAnagrafica, &req)
}

// SubmitFattura accepts one invoice record
func (h *IntegrationHandler) SubmitFattura(c *gin.Context) {
	var req dto.FatturaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}
	h.submit(c, integration.KindFattura, &req)
}

// submit runs the shared ingestion flow: dedup by correlation id, build the
// domain record, drive the pipeline, and translate the outcome to a status.
func (h *IntegrationHandler) submit(c *gin.Context, kind integration.RecordKind, req any) {
	requestID := middleware.GetRequestID(c)

	if h.idemCfg.Enabled {
		seen, err := h.idempotency.IsProcessed(c.Request.Context(), requestID)
		if err != nil {
			// dedup is best-effort: an idempotency store outage must not
			// block ingestion
			h.log.Warn("idempotency check failed, accepting request",
				zap.String("request_id", requestID),
				zap.Error(err))
		} else if seen {
			h.Conflict(c, dto.ErrCodeDuplicateRequest, "request id already processed")
			return
		}
	}

	payload, err := dto.ToPayload(req)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInternal, "failed to decode payload")
		return
	}

	record := integration.NewRecord(requestID, kind, payload)
	outcome := h.service.Process(c.Request.Context(), record)

	// A request id is only consumed once an audit copy exists for it. A run
	// that failed before persistence leaves the id free, so the caller can
	// retry dispatch-layer errors such as pool exhaustion with the same id.
	if h.idemCfg.Enabled && outcome.Status != integration.StatusFailure {
		if _, err := h.idempotency.MarkProcessed(c.Request.Context(), requestID, h.idemCfg.TTL); err != nil {
			h.log.Warn("failed to record processed request id",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}

	if outcome.Succeeded() {
		h.Success(c, outcome)
		return
	}

	code := dto.OutcomeErrorCode(outcome)
	c.JSON(dto.GetHTTPStatus(code), dto.Response{
		Success: false,
		Data:    outcome,
		Error: &dto.ErrorInfo{
			Code:      code,
			Message:   outcomeMessage(outcome),
			RequestID: requestID,
		},
	})
}

// GetRecord returns the persisted audit copy for a correlation id
func (h *IntegrationHandler) GetRecord(c *gin.Context) {
	requestID := c.Param("request_id")

	record, err := h.service.Lookup(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "no audit record for request id")
			return
		}
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "failed to load audit record")
		return
	}

	h.Success(c, dto.NewAuditRecordResponse(record))
}

func outcomeMessage(outcome *integration.OperationOutcome) string {
	if len(outcome.Errors) > 0 {
		return outcome.Errors[0]
	}
	return "request could not be processed"
}
