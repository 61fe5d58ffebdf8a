// Package notifier delivers failure notifications for integration requests
// that could not be fully processed. Delivery is best-effort: a notification
// failure is logged and never fails the originating request.
package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SMTPNotifier implements integration.Notifier over plain SMTP.
// The relay is assumed to be an internal unauthenticated host.
type SMTPNotifier struct {
	cfg  *config.SMTPConfig
	mode integration.Mode
	log  *zap.Logger

	// send is swapped out in tests
	send func(ctx context.Context, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a new SMTPNotifier
func NewSMTPNotifier(cfg *config.SMTPConfig, mode integration.Mode, log *zap.Logger) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg, mode: mode, log: log}
	n.send = n.sendSMTP
	return n
}

// NotifyFailure emails the configured recipients about a failed or partially
// failed integration request. In dry-run mode the message is logged instead.
func (n *SMTPNotifier) NotifyFailure(ctx context.Context, record *integration.IntegrationRecord, outcome *integration.OperationOutcome) error {
	subject := fmt.Sprintf("[scafi-backend] %s failure for %s %s",
		outcome.Status, record.Kind, record.RequestID)
	body := n.buildBody(record, outcome)

	if n.mode.IsDryRun() {
		n.log.Info("notifier dry-run: suppressing failure email",
			zap.String("request_id", record.RequestID),
			zap.String("subject", subject),
			zap.Strings("to", n.cfg.ToDefault))
		return nil
	}

	msg := buildMessage(n.cfg.From, n.cfg.ToDefault, subject, body)
	if err := n.send(ctx, n.cfg.From, n.cfg.ToDefault, msg); err != nil {
		n.log.Error("failed to deliver failure notification",
			zap.String("request_id", record.RequestID),
			zap.Error(err))
		return err
	}

	n.log.Info("failure notification delivered",
		zap.String("request_id", record.RequestID),
		zap.Strings("to", n.cfg.ToDefault))
	return nil
}

func (n *SMTPNotifier) buildBody(record *integration.IntegrationRecord, outcome *integration.OperationOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Integration request could not be completed.\r\n\r\n")
	fmt.Fprintf(&b, "Request ID: %s\r\n", record.RequestID)
	fmt.Fprintf(&b, "Kind:       %s\r\n", record.Kind)
	fmt.Fprintf(&b, "Key:        %s\r\n", record.BusinessKey())
	fmt.Fprintf(&b, "Status:     %s\r\n", outcome.Status)
	fmt.Fprintf(&b, "Stage:      %s\r\n", outcome.FailedStage)
	fmt.Fprintf(&b, "Received:   %s\r\n", record.ReceivedAt.Format(time.RFC3339))
	if len(outcome.Errors) > 0 {
		fmt.Fprintf(&b, "\r\nErrors:\r\n")
		for _, e := range outcome.Errors {
			fmt.Fprintf(&b, "  - %s\r\n", e)
		}
	}
	if outcome.Status == integration.StatusPartialFailure {
		fmt.Fprintf(&b, "\r\nThe record WAS persisted locally but was NOT forwarded to JDE.\r\n")
	}
	return b.String()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&b, "\r\n%s", body)
	return []byte(b.String())
}

// sendSMTP talks to the relay with an explicit dial timeout so a dead SMTP
// host cannot stall the caller beyond the configured bound.
func (n *SMTPNotifier) sendSMTP(ctx context.Context, from string, to []string, msg []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	dialer := &net.Dialer{Timeout: n.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp relay %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(n.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT %s failed: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return client.Quit()
}
