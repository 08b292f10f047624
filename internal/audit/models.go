package audit

import "time"

// Action names the lifecycle event that produced an audit record.
const (
	ActionCredentialCreated    = "credential_created"
	ActionStatusChanged        = "status_changed"
	ActionComplianceAnalyzed   = "compliance_analyzed"
	ActionManualReviewRecorded = "manual_review_recorded"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	CredentialID string    `json:"credential_id"`
	BrandID      string    `json:"brand_id"`
	Action       string    `json:"action"`
	FromStatus   string    `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	ActorID      string    `json:"actor_id"`
	RequestID    string    `json:"request_id,omitempty"`
}
