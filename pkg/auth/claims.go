package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// AccessTokenPayload is what a caller supplies to mint a token. An empty JTI gets a
// random one.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.Role
	SupplierID *uuid.UUID
	JTI        string
}

func (p AccessTokenPayload) validate() error {
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid role %q", p.Role)
	}
	if p.Role == enums.RoleSupplier && p.SupplierID == nil {
		return errors.New("supplier role requires supplier id")
	}
	return nil
}

// AccessTokenClaims is the JWT body presented by clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID  `json:"user_id"`
	Role       enums.Role `json:"role"`
	SupplierID *uuid.UUID `json:"supplier_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt calls it during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token missing user_id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token carries invalid role %q", c.Role)
	}
	return nil
}
