// Package credential owns the supplier-application record, the legality of
// every mutation given its current status, and the append-only transition
// history.
package credential

import (
	"time"

	id "github.com/texlink-oficial/texlink/pkg/domain"
)

// Status is the lifecycle position of a credential. A credential moves from
// DRAFT through validation, compliance, invitation, onboarding and contract
// stages to ACTIVE; BLOCKED is the soft-delete target.
type Status string

const (
	StatusDraft                 Status = "DRAFT"
	StatusPendingValidation     Status = "PENDING_VALIDATION"
	StatusValidationFailed      Status = "VALIDATION_FAILED"
	StatusPendingCompliance     Status = "PENDING_COMPLIANCE"
	StatusComplianceApproved    Status = "COMPLIANCE_APPROVED"
	StatusComplianceRejected    Status = "COMPLIANCE_REJECTED"
	StatusInvitationPending     Status = "INVITATION_PENDING"
	StatusInvitationSent        Status = "INVITATION_SENT"
	StatusInvitationOpened      Status = "INVITATION_OPENED"
	StatusInvitationExpired     Status = "INVITATION_EXPIRED"
	StatusOnboardingStarted     Status = "ONBOARDING_STARTED"
	StatusOnboardingInProgress  Status = "ONBOARDING_IN_PROGRESS"
	StatusContractPending       Status = "CONTRACT_PENDING"
	StatusContractSigned        Status = "CONTRACT_SIGNED"
	StatusActive                Status = "ACTIVE"
	StatusBlocked               Status = "BLOCKED"
)

// AllStatuses lists every valid status, in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPendingValidation,
	StatusValidationFailed,
	StatusPendingCompliance,
	StatusComplianceApproved,
	StatusComplianceRejected,
	StatusInvitationPending,
	StatusInvitationSent,
	StatusInvitationOpened,
	StatusInvitationExpired,
	StatusOnboardingStarted,
	StatusOnboardingInProgress,
	StatusContractPending,
	StatusContractSigned,
	StatusActive,
	StatusBlocked,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OperationKind names the business operation requesting a transition. The
// transition table is keyed by (current status, operation kind); the generic
// transition primitive refuses any target not in the table for that pair.
type OperationKind string

const (
	OpCreate           OperationKind = "create"
	OpRevalidate       OperationKind = "revalidate"
	OpRemove           OperationKind = "remove"
	OpSubmitValidation OperationKind = "submit_validation"
	OpRecordValidation OperationKind = "record_validation"
	OpRecordCompliance OperationKind = "record_compliance"
	OpInvitation       OperationKind = "invitation"
	OpOnboarding       OperationKind = "onboarding"
	OpContract         OperationKind = "contract"
	OpActivate         OperationKind = "activate"
)

// statusSet is a small helper for allow-list membership checks.
type statusSet map[Status]struct{}

func newStatusSet(statuses ...Status) statusSet {
	set := make(statusSet, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// Contains reports allow-list membership.
func (s statusSet) Contains(status Status) bool {
	_, ok := s[status]
	return ok
}

// EditableStatuses are the statuses in which a brand user may update the
// credential's fields.
var EditableStatuses = newStatusSet(StatusDraft, StatusValidationFailed, StatusComplianceRejected)

// RemovableStatuses are the statuses from which a credential may be
// soft-deleted.
var RemovableStatuses = newStatusSet(StatusDraft, StatusValidationFailed, StatusComplianceRejected, StatusInvitationExpired)

// AnalyzableStatuses are the statuses in which a compliance analysis may run.
var AnalyzableStatuses = newStatusSet(StatusPendingCompliance, StatusComplianceRejected)

// PendingActionStatuses are the statuses where the next move belongs to the
// brand, feeding the "pending action" stats bucket.
var PendingActionStatuses = newStatusSet(
	StatusDraft,
	StatusValidationFailed,
	StatusPendingCompliance,
	StatusComplianceRejected,
	StatusInvitationExpired,
)

// AwaitingSupplierStatuses are the statuses where the next move belongs to the
// invited supplier, feeding the "awaiting response" stats bucket.
var AwaitingSupplierStatuses = newStatusSet(
	StatusInvitationSent,
	StatusInvitationOpened,
	StatusOnboardingStarted,
	StatusOnboardingInProgress,
	StatusContractPending,
	StatusContractSigned,
)

type transitionKey struct {
	from Status
	op   OperationKind
}

// transitionTable is the single source of truth for transition legality:
// (current status, operation kind) -> permitted target statuses. Every
// mutation path goes through ChangeStatus, which consults this table.
var transitionTable = map[transitionKey]statusSet{
	// Update of the tax ID forces revalidation from any editable status.
	{StatusDraft, OpRevalidate}:               newStatusSet(StatusDraft),
	{StatusValidationFailed, OpRevalidate}:    newStatusSet(StatusDraft),
	{StatusComplianceRejected, OpRevalidate}:  newStatusSet(StatusDraft),

	// Soft delete.
	{StatusDraft, OpRemove}:              newStatusSet(StatusBlocked),
	{StatusValidationFailed, OpRemove}:   newStatusSet(StatusBlocked),
	{StatusComplianceRejected, OpRemove}: newStatusSet(StatusBlocked),
	{StatusInvitationExpired, OpRemove}:  newStatusSet(StatusBlocked),

	// Registry validation.
	{StatusDraft, OpSubmitValidation}:             newStatusSet(StatusPendingValidation),
	{StatusValidationFailed, OpSubmitValidation}:  newStatusSet(StatusPendingValidation),
	{StatusPendingValidation, OpRecordValidation}: newStatusSet(StatusValidationFailed, StatusPendingCompliance),

	// Compliance decisions, automatic or manual. Reconsideration is allowed in
	// both directions, so an approved credential can still be rejected and a
	// rejected one approved.
	{StatusPendingCompliance, OpRecordCompliance}:  newStatusSet(StatusComplianceApproved, StatusComplianceRejected),
	{StatusComplianceRejected, OpRecordCompliance}: newStatusSet(StatusComplianceApproved, StatusComplianceRejected),
	{StatusComplianceApproved, OpRecordCompliance}: newStatusSet(StatusComplianceRejected),

	// Invitation flow.
	{StatusComplianceApproved, OpInvitation}: newStatusSet(StatusInvitationPending),
	{StatusInvitationPending, OpInvitation}:  newStatusSet(StatusInvitationSent),
	{StatusInvitationSent, OpInvitation}:     newStatusSet(StatusInvitationOpened, StatusInvitationExpired),
	{StatusInvitationOpened, OpInvitation}:   newStatusSet(StatusInvitationExpired),
	{StatusInvitationExpired, OpInvitation}:  newStatusSet(StatusInvitationPending),

	// Onboarding and contract flow.
	{StatusInvitationOpened, OpOnboarding}:      newStatusSet(StatusOnboardingStarted),
	{StatusOnboardingStarted, OpOnboarding}:     newStatusSet(StatusOnboardingInProgress),
	{StatusOnboardingInProgress, OpOnboarding}:  newStatusSet(StatusContractPending),
	{StatusOnboardingInProgress, OpContract}:    newStatusSet(StatusContractPending),
	{StatusContractPending, OpContract}:         newStatusSet(StatusContractSigned),
	{StatusContractSigned, OpActivate}:          newStatusSet(StatusActive),
}

// TransitionAllowed reports whether op may move a credential from current to
// target.
func TransitionAllowed(current Status, op OperationKind, target Status) bool {
	targets, ok := transitionTable[transitionKey{from: current, op: op}]
	if !ok {
		return false
	}
	return targets.Contains(target)
}

// Credential is one supplier-application record per (brand, tax ID) pair. At
// most one non-blocked credential may exist for a pair.
type Credential struct {
	ID          id.CredentialID
	BrandID     id.BrandID
	SupplierID  *id.SupplierID
	TaxID       string // normalized, 14 digits
	CompanyName string
	TradeName   string
	Email       string
	Phone       string
	ContactName string
	Category    string
	Priority    int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// LastValidation is the most recent registry-validation snapshot; cleared
	// when the tax ID changes.
	LastValidation *ValidationSnapshot
}

// ValidationSnapshot captures the registry facts recorded by the last
// successful validation run. The compliance engine scores against it.
type ValidationSnapshot struct {
	CompanyStatus string // registry status string, e.g. ATIVA, SUSPENSA, INAPTA, BAIXADA
	CapitalStock  float64
	FoundedAt     *time.Time
	ValidatedAt   time.Time
	Valid         bool
}

// HistoryEntry is one row of the append-only transition audit log. FromStatus
// is nil for the creation event.
type HistoryEntry struct {
	CredentialID id.CredentialID
	FromStatus   *Status
	ToStatus     Status
	PerformedBy  string // user id or domain.SystemActor
	Reason       string
	CreatedAt    time.Time
}
