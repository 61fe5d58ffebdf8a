package integration

// Stage identifies a step of the pipeline state machine
type Stage string

const (
	// StageValidation covers structural validation of the inbound record
	StageValidation Stage = "validation"
	// StagePersistence covers the transactional audit write
	StagePersistence Stage = "persistence"
	// StageDownstream covers forwarding to JDE
	StageDownstream Stage = "downstream"
)

// OutcomeStatus is the overall verdict of one pipeline run
type OutcomeStatus string

const (
	// StatusSuccess means the record was persisted (or bypassed) and forwarded
	StatusSuccess OutcomeStatus = "success"
	// StatusPartialFailure means the audit copy was persisted but forwarding failed
	StatusPartialFailure OutcomeStatus = "partial_failure"
	// StatusFailure means the pipeline stopped before the record was durable
	StatusFailure OutcomeStatus = "failure"
)

// PersistenceResult is the per-stage detail of the audit write
type PersistenceResult struct {
	PersistedID string `json:"persisted_id,omitempty"`
	Synthetic   bool   `json:"synthetic"`
}

// DownstreamResult is the per-stage detail of the forwarding call
type DownstreamResult struct {
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Attempts   int    `json:"attempts"`
	Synthetic  bool   `json:"synthetic"`
}

// OperationOutcome is the result of one pipeline run. Created by the
// orchestrator, returned to the dispatcher, never mutated after construction.
type OperationOutcome struct {
	RequestID   string             `json:"request_id"`
	Kind        RecordKind         `json:"kind"`
	Status      OutcomeStatus      `json:"status"`
	FailedStage Stage              `json:"failed_stage,omitempty"`
	ErrorKind   string             `json:"error_kind,omitempty"`
	Persistence *PersistenceResult `json:"persistence,omitempty"`
	Downstream  *DownstreamResult  `json:"downstream,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
}

// Succeeded returns true for a fully successful run
func (o *OperationOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Failed returns true when any stage failed
func (o *OperationOutcome) Failed() bool {
	return o.Status != StatusSuccess
}

// Synthetic reports whether every performed stage was bypassed by dry-run
func (o *OperationOutcome) Synthetic() bool {
	if o.Persistence != nil && !o.Persistence.Synthetic {
		return false
	}
	if o.Downstream != nil && !o.Downstream.Synthetic {
		return false
	}
	return o.Persistence != nil || o.Downstream != nil
}
