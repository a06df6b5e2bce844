package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/token/refresh"
	"github.com/pkg/errors"
)

// ValidationStatus is the closed outcome set of full token verification.
type ValidationStatus int

const (
	StatusValid ValidationStatus = iota
	StatusExpired
	StatusInvalidSignature
	StatusInvalidIssuer
	StatusInvalidAudience
	StatusMalformed
	StatusVerificationError
)

func (s ValidationStatus) String() string {
	switch s {
	case StatusValid:
		return "Valid"
	case StatusExpired:
		return "Expired"
	case StatusInvalidSignature:
		return "InvalidSignature"
	case StatusInvalidIssuer:
		return "InvalidIssuer"
	case StatusInvalidAudience:
		return "InvalidAudience"
	case StatusMalformed:
		return "MalformedToken"
	case StatusVerificationError:
		return "VerificationError"
	}
	return "Unknown"
}

// ValidationResult tags a verification outcome. Reason is populated only
// for StatusVerificationError, carrying the underlying failure
// description so callers branch on Status instead of matching strings.
type ValidationResult struct {
	Status ValidationStatus
	Reason string
}

// RefreshStatus is the closed outcome set of refresh eligibility checks.
type RefreshStatus int

const (
	RefreshAccepted RefreshStatus = iota
	RefreshAlgorithmMismatch
	RefreshNotYetExpired
	RefreshRecordNotFound
	RefreshRecordExpired
)

func (s RefreshStatus) String() string {
	switch s {
	case RefreshAccepted:
		return "Accepted"
	case RefreshAlgorithmMismatch:
		return "AlgorithmMismatch"
	case RefreshNotYetExpired:
		return "NotYetExpired"
	case RefreshRecordNotFound:
		return "RefreshRecordNotFound"
	case RefreshRecordExpired:
		return "RefreshRecordExpired"
	}
	return "Unknown"
}

// RefreshValidation reports refresh eligibility. UserID and ExpiresAt are
// populated only when Status is RefreshAccepted; ExpiresAt is the stored
// record's own expiry, reused for the rotated credential pair.
type RefreshValidation struct {
	Status    RefreshStatus
	UserID    int64
	ExpiresAt time.Time
}

// Validator runs full verification of access tokens against the
// configured policy, and gates the refresh flow.
type Validator struct {
	signer Signer
	store  *refresh.Store
	config config.JwtConfig
}

func NewValidator(signer Signer, store *refresh.Store, cfg config.JwtConfig) *Validator {
	return &Validator{
		signer: signer,
		store:  store,
		config: cfg,
	}
}

// Validate verifies signature, issuer, audience, and lifetime, each gated
// by its own policy toggle. StatusValid means "not yet expired and
// everything else checks out"; it says nothing about refresh
// eligibility.
func (v *Validator) Validate(tokenString string) ValidationResult {
	if strings.TrimSpace(tokenString) == "" {
		return ValidationResult{Status: StatusMalformed}
	}

	var payload jwt.MapClaims
	if v.config.ValidateIssuerSigningKey() {
		parser := jwt.NewParser(
			jwt.WithoutClaimsValidation(),
			jwt.WithValidMethods([]string{v.signer.GetSigningMethod().Alg()}),
		)
		parsed, err := parser.Parse(tokenString, v.signer.GetVerificationKey)
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrTokenMalformed):
				return ValidationResult{Status: StatusMalformed}
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				return ValidationResult{Status: StatusInvalidSignature}
			default:
				return ValidationResult{Status: StatusVerificationError, Reason: err.Error()}
			}
		}
		payload, _ = parsed.Claims.(jwt.MapClaims)
	} else {
		parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil {
			return ValidationResult{Status: StatusMalformed}
		}
		payload, _ = parsed.Claims.(jwt.MapClaims)
	}

	if payload == nil {
		return ValidationResult{Status: StatusVerificationError, Reason: "unexpected claims type"}
	}

	if v.config.ValidateIssuer() {
		issuer, _ := payload.GetIssuer()
		if issuer != v.config.GetIssuer() {
			return ValidationResult{Status: StatusInvalidIssuer}
		}
	}

	if v.config.ValidateAudience() {
		audience, _ := payload.GetAudience()
		if !containsAudience(audience, v.config.GetAudience()) {
			return ValidationResult{Status: StatusInvalidAudience}
		}
	}

	if v.config.ValidateLifetime() {
		expiry, err := payload.GetExpirationTime()
		if err != nil || expiry == nil {
			return ValidationResult{Status: StatusVerificationError, Reason: "missing expiry claim"}
		}
		if !expiry.After(NowTimeFunc()) {
			return ValidationResult{Status: StatusExpired}
		}
	}

	return ValidationResult{Status: StatusValid}
}

// ValidateForRefresh gates the refresh flow: the token must carry the
// configured signing algorithm, must already be expired, and must
// correlate with a live stored record through the exact
// (access token, refresh token, user id) triple. Finding a record past
// its own expiry revokes it before RefreshRecordExpired is reported.
func (v *Validator) ValidateForRefresh(ctx context.Context, handle *Handle, accessToken, refreshToken string) (RefreshValidation, error) {
	if handle == nil || handle.Algorithm != v.config.GetSigningAlgorithm() {
		return RefreshValidation{Status: RefreshAlgorithmMismatch}, nil
	}

	if !handle.Expired() {
		return RefreshValidation{Status: RefreshNotYetExpired}, nil
	}

	userID, err := handle.Claims.UserID()
	if err != nil {
		return RefreshValidation{}, errors.Wrap(err, "Validator.ValidateForRefresh UserID")
	}

	record, err := v.store.FindMatching(ctx, accessToken, refreshToken, userID)
	if err != nil {
		return RefreshValidation{}, errors.Wrap(err, "Validator.ValidateForRefresh FindMatching")
	}
	if record == nil {
		return RefreshValidation{Status: RefreshRecordNotFound}, nil
	}

	if record.ExpiresAt.Before(NowTimeFunc()) {
		if err := v.store.Revoke(ctx, record); err != nil {
			return RefreshValidation{}, errors.Wrap(err, "Validator.ValidateForRefresh Revoke")
		}
		return RefreshValidation{Status: RefreshRecordExpired}, nil
	}

	return RefreshValidation{
		Status:    RefreshAccepted,
		UserID:    userID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func containsAudience(audience jwt.ClaimStrings, expected string) bool {
	for _, aud := range audience {
		if aud == expected {
			return true
		}
	}
	return false
}
