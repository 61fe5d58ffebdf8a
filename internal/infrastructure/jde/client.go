package jde

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxResponseSize limits downstream response bodies to prevent memory exhaustion
const maxResponseSize = 1 * 1024 * 1024 // 1MB

// Client forwards integration records to the JDE ingestion endpoints.
// Retries are attempted only for transient failures; a 4xx rejection is
// deterministic and never retried.
type Client struct {
	cfg    *config.JDEConfig
	policy integration.RetryPolicy
	mode   integration.Mode
	http   *http.Client
	log    *zap.Logger

	// wait is swapped out in tests to avoid real sleeps
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new JDE client
func NewClient(cfg *config.JDEConfig, policy integration.RetryPolicy, mode integration.Mode, log *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		policy: policy,
		mode:   mode,
		log:    log,
		http: &http.Client{
			Timeout: policy.Timeout,
		},
		wait: waitContext,
	}
}

func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Send forwards one record to JDE, retrying transient failures with
// exponential backoff until the attempt budget is exhausted.
func (c *Client) Send(ctx context.Context, record *integration.IntegrationRecord) (*integration.DownstreamResponse, error) {
	if c.mode.IsDryRun() {
		c.log.Info("downstream dry-run: skipping JDE forward",
			zap.String("request_id", record.RequestID),
			zap.String("kind", string(record.Kind)))
		return &integration.DownstreamResponse{StatusCode: http.StatusOK, Synthetic: true}, nil
	}

	url, err := c.endpointFor(record.Kind)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(record.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record payload: %w", err)
	}

	attempts := c.policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *integration.DownstreamError
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// attempt N waits base * 2^(N-2): base before the first retry,
			// doubling for each retry after that
			backoff := c.policy.BaseBackoff << uint(attempt-2)
			if err := c.wait(ctx, backoff); err != nil {
				lastErr.Attempts = attempt - 1
				return nil, lastErr
			}
		}

		resp, dErr := c.post(ctx, url, record.RequestID, body)
		if dErr == nil {
			resp.Attempts = attempt
			return resp, nil
		}

		dErr.Attempts = attempt
		if !dErr.Retryable() {
			return nil, dErr
		}
		c.log.Warn("downstream call failed, will retry if budget remains",
			zap.String("request_id", record.RequestID),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("kind", string(dErr.Kind)),
			zap.Error(dErr))
		lastErr = dErr
	}

	return nil, lastErr
}

// post performs a single forwarding attempt.
func (c *Client) post(ctx context.Context, url, requestID string, body []byte) (*integration.DownstreamResponse, *integration.DownstreamError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, integration.NewDownstreamError(integration.DownstreamConnectionRefused, 0, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.Credentials != "" {
		req.Header.Set("Authorization", c.cfg.Credentials)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, integration.NewDownstreamError(integration.DownstreamTimeout, resp.StatusCode, "", err)
	}

	switch {
	case resp.StatusCode < http.StatusBadRequest:
		return &integration.DownstreamResponse{StatusCode: resp.StatusCode, Body: string(respBody)}, nil
	case resp.StatusCode < http.StatusInternalServerError:
		return nil, integration.NewDownstreamError(integration.DownstreamClientRejected, resp.StatusCode, string(respBody), nil)
	default:
		return nil, integration.NewDownstreamError(integration.DownstreamServerError, resp.StatusCode, string(respBody), nil)
	}
}

// Ping performs a readiness round-trip against the JDE health endpoint.
// Any response below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.mode.IsDryRun() {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.cfg.ResolvedBaseURL()+c.cfg.HealthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jde unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("jde health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpointFor(kind integration.RecordKind) (string, error) {
	base := c.cfg.ResolvedBaseURL()
	switch kind {
	case integration.KindAnagrafica:
		return base + c.cfg.AnagrafichePath, nil
	case integration.KindFattura:
		return base + c.cfg.FatturePath, nil
	default:
		return "", fmt.Errorf("no downstream endpoint for record kind %q", kind)
	}
}

func classifyTransportError(err error) *integration.DownstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return integration.NewDownstreamError(integration.DownstreamTimeout, 0, "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return integration.NewDownstreamError(integration.DownstreamTimeout, 0, "", err)
	}
	return integration.NewDownstreamError(integration.DownstreamConnectionRefused, 0, "", err)
}
