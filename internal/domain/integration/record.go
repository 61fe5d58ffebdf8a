package integration

import (
	"fmt"
	"strings"
	"time"
)

// RecordKind discriminates the two business record types exchanged with JDE
type RecordKind string

const (
	// KindAnagrafica is a master-data record (customer/vendor entity)
	KindAnagrafica RecordKind = "anagrafica"
	// KindFattura is an invoice record
	KindFattura RecordKind = "fattura"
)

// IsValid returns true if the kind is recognized
func (k RecordKind) IsValid() bool {
	switch k {
	case KindAnagrafica, KindFattura:
		return true
	default:
		return false
	}
}

// String returns the string representation of RecordKind
func (k RecordKind) String() string {
	return string(k)
}

// Required payload fields per record kind. The payload schema is owned by
// upstream callers; the pipeline only checks structural presence at ingress.
var requiredFields = map[RecordKind][]string{
	KindAnagrafica: {"codice", "tipo", "tipoSoggetto", "anagrafica", "zucchettiNumber"},
	KindFattura:    {"DocumentType", "DocumentNumber", "DocumentCompany", "Customer", "Company", "InvoiceDate", "RegistrationDate", "CurrencyCode", "PymtTerms"},
}

// IntegrationRecord is an inbound business record bound to a correlation id.
// Immutable once created; lives for the duration of one request.
type IntegrationRecord struct {
	RequestID  string
	Kind       RecordKind
	Payload    map[string]any
	ReceivedAt time.Time
}

// NewRecord builds an IntegrationRecord from an already-deserialized payload
func NewRecord(requestID string, kind RecordKind, payload map[string]any) *IntegrationRecord {
	return &IntegrationRecord{
		RequestID:  requestID,
		Kind:       kind,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}

// Validate performs structural validation: the kind must be recognized and
// every required field must be present and non-empty. Validation failure is
// terminal for the pipeline and happens before any I/O.
func (r *IntegrationRecord) Validate() error {
	if r.RequestID == "" {
		return NewValidationError("request id is missing")
	}
	if !r.Kind.IsValid() {
		return NewValidationError(fmt.Sprintf("unrecognized record kind %q", r.Kind))
	}
	var missing []string
	for _, field := range requiredFields[r.Kind] {
		v, ok := r.Payload[field]
		if !ok || isEmptyValue(v) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// BusinessKey returns the caller-facing identifier of the record, used only
// for log lines and notification bodies.
func (r *IntegrationRecord) BusinessKey() string {
	switch r.Kind {
	case KindAnagrafica:
		if v, ok := r.Payload["codice"].(string); ok {
			return v
		}
	case KindFattura:
		if v, ok := r.Payload["DocumentNumber"].(string); ok {
			return v
		}
	}
	return ""
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
