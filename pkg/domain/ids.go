// Package domain holds typed identifiers shared across modules. Each ID is a
// distinct type over uuid.UUID so an agent can never be passed where an
// authority is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "mandate/pkg/domain-errors"
)

type (
	// PrincipalID identifies an authenticated caller before its role is known.
	PrincipalID uuid.UUID
	// AuthorityID identifies the principal that owns a policy.
	AuthorityID uuid.UUID
	// AgentID identifies the actor that logs decisions under a policy.
	AgentID uuid.UUID
	// PolicyID references a stored policy record.
	PolicyID uuid.UUID
)

// maxIDLength bounds input before it reaches uuid.Parse; the longest accepted
// form is the 45 byte urn:uuid: prefix form.
const maxIDLength = 45

func parseID[T ~[16]byte](s, kind string) (T, error) {
	var zero T
	if s == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return zero, dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return T(parsed), nil
}

func ParsePrincipalID(s string) (PrincipalID, error) { return parseID[PrincipalID](s, "principal id") }
func ParseAuthorityID(s string) (AuthorityID, error) { return parseID[AuthorityID](s, "authority id") }
func ParseAgentID(s string) (AgentID, error)         { return parseID[AgentID](s, "agent id") }
func ParsePolicyID(s string) (PolicyID, error)       { return parseID[PolicyID](s, "policy id") }

func (id PrincipalID) String() string { return uuid.UUID(id).String() }
func (id PrincipalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AuthorityID) String() string { return uuid.UUID(id).String() }
func (id AuthorityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AgentID) String() string { return uuid.UUID(id).String() }
func (id AgentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id PolicyID) String() string { return uuid.UUID(id).String() }
func (id PolicyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AuthorityID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AgentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id PolicyID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *AuthorityID) UnmarshalText(b []byte) error {
	parsed, err := ParseAuthorityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AgentID) UnmarshalText(b []byte) error {
	parsed, err := ParseAgentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PolicyID) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AsAuthority reinterprets an authenticated principal as a policy owner.
func (id PrincipalID) AsAuthority() AuthorityID { return AuthorityID(id) }

// AsAgent reinterprets an authenticated principal as a logging agent.
func (id PrincipalID) AsAgent() AgentID { return AgentID(id) }
