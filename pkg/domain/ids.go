// Package domain defines typed identifiers shared across modules.
//
// UUID-backed IDs (audits, sessions, auditors) are distinct Go types so the
// compiler rejects cross-type assignment. Subject and policy identifiers come
// from external systems (HR feeds, policy configuration) and stay opaque
// validated strings rather than UUIDs.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "attesta/pkg/domain-errors"
)

type (
	// AuditID identifies one audit result.
	AuditID uuid.UUID

	// SessionID identifies one audit session.
	SessionID uuid.UUID

	// AuditorID identifies the authenticated auditor initiating audits.
	AuditorID uuid.UUID
)

// SubjectID is the opaque identifier of the individual being audited.
type SubjectID string

// PolicyID is the opaque identifier of a compliance policy.
type PolicyID string

const maxExternalIDLength = 128

func (i AuditID) IsNil() bool   { return uuid.UUID(i) == uuid.Nil }
func (i SessionID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i AuditorID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }

func (i AuditID) String() string   { return uuid.UUID(i).String() }
func (i SessionID) String() string { return uuid.UUID(i).String() }
func (i AuditorID) String() string { return uuid.UUID(i).String() }

func (i SubjectID) String() string { return string(i) }
func (i PolicyID) String() string  { return string(i) }

// MarshalText renders UUID-backed IDs in canonical string form so JSON
// encoding never falls back to the raw byte array.
func (i AuditID) MarshalText() ([]byte, error)   { return []byte(i.String()), nil }
func (i SessionID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i AuditorID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *AuditID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*i = AuditID(u)
	return nil
}

func (i *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*i = SessionID(u)
	return nil
}

func (i *AuditorID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*i = AuditorID(u)
	return nil
}

// NewAuditID generates a fresh audit identifier.
func NewAuditID() AuditID { return AuditID(uuid.New()) }

// NewSessionID generates a fresh session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewAuditorID generates a fresh auditor identifier.
func NewAuditorID() AuditorID { return AuditorID(uuid.New()) }

// ParseAuditID parses and validates an audit ID at a trust boundary.
func ParseAuditID(s string) (AuditID, error) {
	u, err := parseUUID(s, "audit_id")
	return AuditID(u), err
}

// ParseSessionID parses and validates a session ID at a trust boundary.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session_id")
	return SessionID(u), err
}

// ParseAuditorID parses and validates an auditor ID at a trust boundary.
func ParseAuditorID(s string) (AuditorID, error) {
	u, err := parseUUID(s, "auditor_id")
	return AuditorID(u), err
}

// ParseSubjectID validates an external subject identifier. Subject IDs are
// opaque but must be non-empty, printable, and bounded in length so they are
// safe to log and index.
func ParseSubjectID(s string) (SubjectID, error) {
	if err := validateExternalID(s, "subject_id"); err != nil {
		return "", err
	}
	return SubjectID(s), nil
}

// ParsePolicyID validates an external policy identifier.
func ParsePolicyID(s string) (PolicyID, error) {
	if err := validateExternalID(s, "policy_id"); err != nil {
		return "", err
	}
	return PolicyID(s), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func validateExternalID(s, field string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, field+" must not be empty")
	}
	if len(s) > maxExternalIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, field+" exceeds maximum length")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return dErrors.New(dErrors.CodeInvalidInput, field+" contains control characters")
		}
	}
	return nil
}
