package dto

import (
	"encoding/json"
	"time"

	"github.com/scafi/backend/internal/domain/integration"
)

// AnagraficaRequest is the inbound master-data payload. Field names follow
// the upstream Scafi contract and are forwarded to JDE unchanged.
type AnagraficaRequest struct {
	Codice               string `json:"codice" binding:"required"`
	Tipo                 string `json:"tipo" binding:"required"`
	TipoSoggetto         string `json:"tipoSoggetto" binding:"required"`
	Anagrafica           string `json:"anagrafica" binding:"required"`
	PartitaIva           string `json:"partitaIva,omitempty"`
	CodiceFiscale        string `json:"codiceFiscale,omitempty"`
	Indirizzo            string `json:"indirizzo,omitempty"`
	NumeroCivico         string `json:"numeroCivico,omitempty"`
	Cap                  string `json:"cap,omitempty"`
	Citta                string `json:"citta,omitempty"`
	Provincia            string `json:"provincia,omitempty"`
	Nazione              string `json:"nazione,omitempty"`
	CodiceIva            string `json:"codiceIva,omitempty"`
	Iban                 string `json:"iban,omitempty"`
	CodiceBanca          string `json:"codiceBanca,omitempty"`
	PayeeNumber          string `json:"payeeNumber,omitempty"`
	DatiAudit            string `json:"datiAudit,omitempty"`
	DichiarazioneIntento string `json:"dichiarazioneIntento,omitempty"`
	CodicePA             string `json:"codicePA,omitempty"`
	PaymentTerms         string `json:"paymentTerms,omitempty"`
	PaymentMethod        string `json:"paymentMethod,omitempty"`
	CodicePrincipale     string `json:"codiceprincipale,omitempty"`
	ZucchettiNumber      string `json:"zucchettiNumber" binding:"required"`
}

// FatturaRequest is the inbound invoice payload, mirroring the JDE invoice
// ingestion contract.
type FatturaRequest struct {
	// Required numerics are pointers: zero is a legitimate value and must
	// be distinguishable from an absent field.
	CustomId         *int   `json:"CustomId" binding:"required"`
	CustomExported   *bool  `json:"CustomExported,omitempty"`
	DocumentType     string `json:"DocumentType" binding:"required"`
	DocumentNumber   string `json:"DocumentNumber" binding:"required"`
	DocumentCompany  string `json:"DocumentCompany" binding:"required"`
	Customer         string `json:"Customer" binding:"required"`
	Company          string `json:"Company" binding:"required"`
	InvoiceDate      string `json:"InvoiceDate" binding:"required"`
	RegistrationDate string `json:"RegistrationDate" binding:"required"`
	CurrencyCode     string `json:"CurrencyCode" binding:"required"`
	ExchangeRate     *int   `json:"ExchangeRate" binding:"required"`
	SubledgerCod     string `json:"SubledgerCod,omitempty"`
	SubledgerType    string `json:"SubledgerType,omitempty"`
	CustomerLedger   []any  `json:"CustomerLedger" binding:"required"`
	InvoiceDetails   []any  `json:"InvoiceDetails" binding:"required"`
	PymtTerms        string `json:"PymtTerms" binding:"required"`
	Attachment       string `json:"Attachment,omitempty"`
}

// ToPayload converts a request DTO into the generic payload map the pipeline
// operates on, preserving the upstream field names.
func ToPayload(req any) (map[string]any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AuditRecordResponse is the read model for a persisted audit copy
type AuditRecordResponse struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	Kind        string         `json:"kind"`
	BusinessKey string         `json:"business_key"`
	Payload     map[string]any `json:"payload"`
	ReceivedAt  time.Time      `json:"received_at"`
}

// NewAuditRecordResponse builds the response DTO from a domain audit record
func NewAuditRecordResponse(record *integration.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:          record.ID,
		RequestID:   record.RequestID,
		Kind:        string(record.Kind),
		BusinessKey: record.BusinessKey,
		Payload:     record.Payload,
		ReceivedAt:  record.ReceivedAt,
	}
}
