package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/jrsteele09/go-credential-service/identity"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/token/refresh"
	"github.com/pkg/errors"
)

const refreshTokenLength = 32 // 256 bits

// RefreshToken is the transient value handed back to the caller. Only
// TokenString reaches the client; the rest is folded into the stored
// record.
type RefreshToken struct {
	Username    string    `json:"username"`
	TokenString string    `json:"token_string"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Credentials is a full credential pair: the signed access token and its
// companion refresh token.
type Credentials struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken RefreshToken `json:"refresh_token"`
}

// Manager composes the claims builder, codec, and refresh store into the
// issuance flows.
type Manager struct {
	claims *ClaimsBuilder
	codec  *Codec
	store  *refresh.Store
	config config.JwtConfig
}

func NewManager(claims *ClaimsBuilder, codec *Codec, store *refresh.Store, cfg config.JwtConfig) *Manager {
	return &Manager{
		claims: claims,
		codec:  codec,
		store:  store,
		config: cfg,
	}
}

// IssueCredentials mints a credential pair for a freshly authenticated
// identity: new claims, new signed access token, new random refresh
// secret, and a stored record correlating the two through the token's
// jti. The record starts live (isUsed=true, isRevoked=false) and expires
// refreshTokenExpireMonths from now.
func (m *Manager) IssueCredentials(ctx context.Context, ident *identity.Identity) (*Credentials, error) {
	claims, err := m.claims.Build(ctx, ident)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.IssueCredentials Build")
	}

	handle, accessToken, err := m.codec.Encode(claims)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.IssueCredentials Encode")
	}

	secret, err := generateRefreshSecret()
	if err != nil {
		return nil, errors.Wrap(err, "Manager.IssueCredentials generateRefreshSecret")
	}

	now := NowTimeFunc()
	expiresAt := now.AddDate(0, m.config.GetRefreshTokenExpireMonths(), 0)

	record := &refresh.Record{
		UserID:       ident.ID,
		JwtID:        handle.ID,
		AccessToken:  accessToken,
		RefreshToken: secret,
		IsUsed:       true,
		IsRevoked:    false,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}
	if err := m.store.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "Manager.IssueCredentials Create")
	}

	return &Credentials{
		AccessToken: accessToken,
		RefreshToken: RefreshToken{
			Username:    ident.Username,
			TokenString: secret,
			ExpiresAt:   expiresAt,
		},
	}, nil
}

// RefreshCredentials mints a brand-new access token (fresh claims, fresh
// jti, fresh expiry) while reusing the caller-supplied refresh token
// string and expiry; the refresh secret itself is not rotated. A new
// record correlating the new access token is stored so the next refresh
// can match its triple. Callers must have already obtained
// RefreshAccepted from the validator.
func (m *Manager) RefreshCredentials(ctx context.Context, ident *identity.Identity, expiresAt time.Time, refreshToken string) (*Credentials, error) {
	claims, err := m.claims.Build(ctx, ident)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.RefreshCredentials Build")
	}

	handle, accessToken, err := m.codec.Encode(claims)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.RefreshCredentials Encode")
	}

	record := &refresh.Record{
		UserID:       ident.ID,
		JwtID:        handle.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IsUsed:       true,
		IsRevoked:    false,
		CreatedAt:    NowTimeFunc(),
		ExpiresAt:    expiresAt,
	}
	if err := m.store.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "Manager.RefreshCredentials Create")
	}

	return &Credentials{
		AccessToken: accessToken,
		RefreshToken: RefreshToken{
			Username:    ident.Username,
			TokenString: refreshToken,
			ExpiresAt:   expiresAt,
		},
	}, nil
}

func generateRefreshSecret() (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "rand.Read")
	}
	return base64.StdEncoding.EncodeToString(tokenBytes), nil
}
