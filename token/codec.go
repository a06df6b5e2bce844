package token

import (
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-credential-service/identity"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
// All expiry arithmetic uses UTC.
var NowTimeFunc = func() time.Time { return time.Now().UTC() }

var (
	ErrEmptyToken        = errors.New("token string is empty")
	ErrMalformedToken    = errors.New("token string is not a well-formed signed token")
	ErrReservedClaimType = errors.New("claim type is a registered JWT claim")
)

// registered claim names owned by the codec itself; identity claims never
// use these types.
var registeredClaims = map[string]struct{}{
	"iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "sub": {}, "jti": {},
}

// Handle carries the decoded envelope of an access token: its unique id,
// signing algorithm, lifetime bounds, and identity claim set. A handle
// says nothing about whether the token verifies.
type Handle struct {
	ID        string
	Algorithm string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    ClaimSet
}

// Expired reports whether the token's lifetime has elapsed.
func (h *Handle) Expired() bool {
	return !h.ExpiresAt.After(NowTimeFunc())
}

// Codec encodes claim sets into signed, time-bounded token strings and
// parses token strings back without verification.
type Codec struct {
	signer Signer
	config config.JwtConfig
}

func NewCodec(signer Signer, cfg config.JwtConfig) *Codec {
	return &Codec{
		signer: signer,
		config: cfg,
	}
}

// Encode signs the claim set into a token expiring accessTokenExpireDays
// from now, with a fresh jti per call. Claim types appearing more than
// once (roles, colliding customs) are serialized as an ordered array
// under the shared type. A claim using a registered JWT claim type
// (iss, exp, jti, ...) is rejected with ErrReservedClaimType; those
// slots belong to the envelope and cannot round-trip.
func (c *Codec) Encode(claims ClaimSet) (*Handle, string, error) {
	now := NowTimeFunc()
	expiresAt := now.AddDate(0, 0, c.config.GetAccessTokenExpireDays())
	jwtID := uuid.New().String()

	payload := jwt.MapClaims{
		"iss": c.config.GetIssuer(),
		"aud": c.config.GetAudience(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": jwtID,
	}

	for _, claim := range claims {
		if _, reserved := registeredClaims[claim.Type]; reserved {
			return nil, "", errors.Wrapf(ErrReservedClaimType, "Codec.Encode %q", claim.Type)
		}
		switch existing := payload[claim.Type].(type) {
		case nil:
			payload[claim.Type] = claim.Value
		case string:
			payload[claim.Type] = []string{existing, claim.Value}
		case []string:
			payload[claim.Type] = append(existing, claim.Value)
		}
	}

	signed, err := c.signer.Sign(payload)
	if err != nil {
		return nil, "", errors.Wrap(err, "Codec.Encode Sign")
	}

	handle := &Handle{
		ID:        jwtID,
		Algorithm: c.signer.GetSigningMethod().Alg(),
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		Claims:    claims,
	}
	return handle, signed, nil
}

// Decode parses a token string without verifying signature or lifetime.
// It exists for introspection during refresh, where the token is expected
// to be expired. Returns ErrEmptyToken for blank input and
// ErrMalformedToken when the string is not a three-part JWT envelope.
func (c *Codec) Decode(tokenString string) (*Handle, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrEmptyToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrMalformedToken, err.Error())
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrMalformedToken, "unexpected claims type")
	}

	handle := &Handle{
		Claims: extractClaimSet(payload),
	}
	handle.ID, _ = payload["jti"].(string)
	handle.Algorithm, _ = parsed.Header["alg"].(string)

	if iat, ok := payload["iat"].(float64); ok {
		handle.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := payload["exp"].(float64); ok {
		handle.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}

	return handle, nil
}

// extractClaimSet rebuilds the identity claim set from a decoded payload.
// JSON objects carry no order, so the set is normalized: built-in claims
// first, then roles, then the remaining custom claims sorted by type.
func extractClaimSet(payload jwt.MapClaims) ClaimSet {
	var claims ClaimSet

	appendClaim := func(claimType string) {
		switch value := payload[claimType].(type) {
		case string:
			claims = append(claims, identity.Claim{Type: claimType, Value: value})
		case []interface{}:
			for _, v := range value {
				if s, ok := v.(string); ok {
					claims = append(claims, identity.Claim{Type: claimType, Value: s})
				}
			}
		}
	}

	builtIns := []string{ClaimTypeName, ClaimTypeEmail, ClaimTypePhone, ClaimTypeID, ClaimTypeRole}
	for _, claimType := range builtIns {
		appendClaim(claimType)
	}

	seen := make(map[string]struct{}, len(builtIns))
	for _, claimType := range builtIns {
		seen[claimType] = struct{}{}
	}

	var customTypes []string
	for claimType := range payload {
		if _, ok := registeredClaims[claimType]; ok {
			continue
		}
		if _, ok := seen[claimType]; ok {
			continue
		}
		customTypes = append(customTypes, claimType)
	}
	sort.Strings(customTypes)

	for _, claimType := range customTypes {
		appendClaim(claimType)
	}

	return claims
}
