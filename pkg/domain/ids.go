// Package domain defines typed identifiers shared across bounded contexts.
//
// Wrapping uuid.UUID in distinct named types makes cross-type assignment a
// compile error: a BrandID can never be passed where a CredentialID is
// expected. Parse functions enforce the trust-boundary invariant that IDs are
// valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
)

type (
	// CredentialID identifies one supplier-application record.
	CredentialID uuid.UUID

	// BrandID identifies the brand that owns a credential.
	BrandID uuid.UUID

	// SupplierID identifies the company created once onboarding completes.
	SupplierID uuid.UUID

	// UserID identifies a human actor.
	UserID uuid.UUID

	// AnalysisID identifies a compliance analysis record.
	AnalysisID uuid.UUID
)

// SystemActor is the sentinel performer recorded on machine-authored status
// transitions.
const SystemActor = "SYSTEM"

func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id CredentialID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id BrandID) String() string { return uuid.UUID(id).String() }
func (id BrandID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SupplierID) String() string { return uuid.UUID(id).String() }
func (id SupplierID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AnalysisID) String() string { return uuid.UUID(id).String() }
func (id AnalysisID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewCredentialID mints a random credential ID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

// NewBrandID mints a random brand ID.
func NewBrandID() BrandID { return BrandID(uuid.New()) }

// NewUserID mints a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewAnalysisID mints a random analysis ID.
func NewAnalysisID() AnalysisID { return AnalysisID(uuid.New()) }

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", what)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid UUID", what)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be the nil UUID", what)
	}
	return parsed, nil
}

// ParseCredentialID parses and validates a credential ID from its string form.
func ParseCredentialID(raw string) (CredentialID, error) {
	parsed, err := parseUUID(raw, "credential id")
	return CredentialID(parsed), err
}

// ParseBrandID parses and validates a brand ID from its string form.
func ParseBrandID(raw string) (BrandID, error) {
	parsed, err := parseUUID(raw, "brand id")
	return BrandID(parsed), err
}

// ParseSupplierID parses and validates a supplier ID from its string form.
func ParseSupplierID(raw string) (SupplierID, error) {
	parsed, err := parseUUID(raw, "supplier id")
	return SupplierID(parsed), err
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user id")
	return UserID(parsed), err
}
