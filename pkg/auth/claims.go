package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	OrganizationID uuid.UUID
	ApplicationID  *uuid.UUID
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to clients. ApplicationID
// is set only for machine tokens minted for integration applications.
type AccessTokenClaims struct {
	OrganizationID uuid.UUID  `json:"organization_id"`
	ApplicationID  *uuid.UUID `json:"application_id,omitempty"`
	jwt.RegisteredClaims
}
