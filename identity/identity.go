package identity

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Claim is a single (type, value) attribute of an identity. Custom claims
// assigned to an identity are carried into every access token it is
// issued, after the built-in name/email/phone/id/role claims.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Identity is the read-mostly user record this core consumes. Persistence
// of identities is an external concern; the core only reads the fields
// below and writes Code during the reset-password flow.
type Identity struct {
	ID             int64    `json:"id"`
	Username       string   `json:"username,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Code           string   `json:"-"` // pending reset-password code, empty when none
	PasswordHash   string   `json:"-"`
	EmailConfirmed bool     `json:"email_confirmed,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	Claims         []Claim  `json:"claims,omitempty"`
}

// Manager is the identity-management collaborator. Lookups return
// (nil, nil) when no identity matches; an error always means a
// store-level failure, never "not found".
type Manager interface {
	FindByID(ctx context.Context, id int64) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	GetRoles(ctx context.Context, ident *Identity) ([]string, error)
	GetClaims(ctx context.Context, ident *Identity) ([]Claim, error)
	Update(ctx context.Context, ident *Identity) error

	// ConfirmEmail applies the collaborator's own email-confirmation
	// primitive and reports whether it succeeded.
	ConfirmEmail(ctx context.Context, id int64, code string) (bool, error)

	// Password primitives. Hashing is owned by the collaborator, not by
	// this core.
	CheckPassword(ctx context.Context, ident *Identity, password string) (bool, error)
	RemovePassword(ctx context.Context, ident *Identity) error
	AddPassword(ctx context.Context, ident *Identity, password string) error
	HasPassword(ctx context.Context, ident *Identity) (bool, error)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
