package token

import (
	"context"
	"strconv"

	"github.com/jrsteele09/go-credential-service/identity"
	"github.com/pkg/errors"
)

// Built-in claim types emitted for every identity. Role and custom claim
// types may repeat within a set; no deduplication is performed.
const (
	ClaimTypeName  = "name"
	ClaimTypeEmail = "email"
	ClaimTypePhone = "phone_number"
	ClaimTypeID    = "id"
	ClaimTypeRole  = "role"
)

// ClaimSet is the ordered list of identity claims carried by an access
// token. It is built fresh on every issuance and never mutated after
// signing.
type ClaimSet []identity.Claim

// Get returns the first value recorded for the given claim type.
func (cs ClaimSet) Get(claimType string) (string, bool) {
	for _, c := range cs {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for the given claim type, in order.
func (cs ClaimSet) Values(claimType string) []string {
	var values []string
	for _, c := range cs {
		if c.Type == claimType {
			values = append(values, c.Value)
		}
	}
	return values
}

// Roles returns the role claims of the set, in order.
func (cs ClaimSet) Roles() []string {
	return cs.Values(ClaimTypeRole)
}

// UserID parses the numeric id claim.
func (cs ClaimSet) UserID() (int64, error) {
	value, ok := cs.Get(ClaimTypeID)
	if !ok {
		return 0, errors.New("ClaimSet.UserID missing id claim")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "ClaimSet.UserID parse")
	}
	return id, nil
}

// ClaimsBuilder assembles the claim set for an identity using the
// read-only role and claim lookups of the identity collaborator.
type ClaimsBuilder struct {
	ids identity.Manager
}

func NewClaimsBuilder(ids identity.Manager) *ClaimsBuilder {
	return &ClaimsBuilder{ids: ids}
}

// Build returns name, email, phone, and id claims, one role claim per
// assigned role in lookup order, followed by the identity's custom
// claims in stored order. A colliding custom claim type is emitted
// alongside the built-in one, not merged.
func (b *ClaimsBuilder) Build(ctx context.Context, ident *identity.Identity) (ClaimSet, error) {
	userRoles, err := b.ids.GetRoles(ctx, ident)
	if err != nil {
		return nil, errors.Wrap(err, "ClaimsBuilder.Build GetRoles")
	}

	claims := ClaimSet{
		{Type: ClaimTypeName, Value: ident.Username},
		{Type: ClaimTypeEmail, Value: ident.Email},
		{Type: ClaimTypePhone, Value: ident.Phone},
		{Type: ClaimTypeID, Value: strconv.FormatInt(ident.ID, 10)},
	}

	for _, role := range userRoles {
		claims = append(claims, identity.Claim{Type: ClaimTypeRole, Value: role})
	}

	userClaims, err := b.ids.GetClaims(ctx, ident)
	if err != nil {
		return nil, errors.Wrap(err, "ClaimsBuilder.Build GetClaims")
	}
	claims = append(claims, userClaims...)

	return claims, nil
}
