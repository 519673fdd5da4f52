package types

import "github.com/google/uuid"

// Scope carries the resolved caller identity for a request. It is passed
// explicitly to services instead of living in ambient request state, so a
// pagination or dispatch call always names the organization it reads for.
type Scope struct {
	OrganizationID uuid.UUID
	// ApplicationID is set when the caller is an OAuth application
	// (integration token) rather than a user session.
	ApplicationID *uuid.UUID
}

// Valid reports whether the scope names an organization.
func (s Scope) Valid() bool {
	return s.OrganizationID != uuid.Nil
}

// IsApplication reports whether the caller is an OAuth application.
func (s Scope) IsApplication() bool {
	return s.ApplicationID != nil && *s.ApplicationID != uuid.Nil
}
