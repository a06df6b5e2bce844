package auth

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-credential-service/email"
	"github.com/jrsteele09/go-credential-service/identity"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/token/refresh"
)

var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Collaborators holds the external dependencies of the CredentialService.
type Collaborators struct {
	Identities identity.Manager
	Store      *refresh.Store
	Emails     email.Dispatcher
	Tx         Transactor
}

// CredentialService composes the token components and the external
// collaborators into the login, refresh, and secret-code flows. Every
// request executes as an independent unit; the service holds no mutable
// state of its own.
type CredentialService struct {
	ids       identity.Manager
	store     *refresh.Store
	emails    email.Dispatcher
	tx        Transactor
	tokens    *token.Manager
	codec     *token.Codec
	validator *token.Validator
	logger    zerolog.Logger
}

// CredentialServiceOption modifies the CredentialService instance.
type CredentialServiceOption func(*CredentialService)

func WithLogger(logger zerolog.Logger) CredentialServiceOption {
	return func(cs *CredentialService) {
		cs.logger = logger
	}
}

func NewCredentialService(
	collaborators Collaborators,
	tokens *token.Manager,
	codec *token.Codec,
	validator *token.Validator,
	options ...CredentialServiceOption,
) (*CredentialService, error) {
	if collaborators.Identities == nil {
		return nil, errors.New("[NewCredentialService] identity manager is required")
	}
	if collaborators.Store == nil {
		return nil, errors.New("[NewCredentialService] refresh token store is required")
	}
	if collaborators.Emails == nil {
		return nil, errors.New("[NewCredentialService] email dispatcher is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewCredentialService] token manager is required")
	}
	if codec == nil {
		return nil, errors.New("[NewCredentialService] token codec is required")
	}
	if validator == nil {
		return nil, errors.New("[NewCredentialService] token validator is required")
	}

	service := &CredentialService{
		ids:       collaborators.Identities,
		store:     collaborators.Store,
		emails:    collaborators.Emails,
		tx:        collaborators.Tx,
		tokens:    tokens,
		codec:     codec,
		validator: validator,
		logger:    zerolog.Nop(),
	}
	if service.tx == nil {
		service.tx = NopTransactor{}
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Login checks the credentials through the identity collaborator's own
// password primitive and issues a fresh credential pair.
func (cs *CredentialService) Login(ctx context.Context, userEmail, password string) (*token.Credentials, error) {
	ident, err := cs.ids.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, errors.Wrap(err, "CredentialService.Login FindByEmail")
	}
	if ident == nil {
		return nil, ErrIdentityNotFound
	}

	ok, err := cs.ids.CheckPassword(ctx, ident, password)
	if err != nil {
		return nil, errors.Wrap(err, "CredentialService.Login CheckPassword")
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return cs.tokens.IssueCredentials(ctx, ident)
}

// Authorize runs full verification of an access token against the
// configured policy.
func (cs *CredentialService) Authorize(accessToken string) token.ValidationResult {
	return cs.validator.Validate(accessToken)
}

// Refresh rotates a credential pair: the presented access token must be
// expired and correlated with a live stored record. On acceptance a new
// access token is minted against the reused refresh secret and the
// superseded record is revoked. A non-accepted status is an ordinary
// outcome, not an error.
func (cs *CredentialService) Refresh(ctx context.Context, accessToken, refreshToken string) (*token.Credentials, token.RefreshStatus, error) {
	handle, err := cs.codec.Decode(accessToken)
	if err != nil {
		return nil, 0, errors.Wrap(err, "CredentialService.Refresh Decode")
	}

	validation, err := cs.validator.ValidateForRefresh(ctx, handle, accessToken, refreshToken)
	if err != nil {
		return nil, 0, errors.Wrap(err, "CredentialService.Refresh ValidateForRefresh")
	}
	if validation.Status != token.RefreshAccepted {
		return nil, validation.Status, nil
	}

	ident, err := cs.ids.FindByID(ctx, validation.UserID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "CredentialService.Refresh FindByID")
	}
	if ident == nil {
		return nil, 0, ErrIdentityNotFound
	}

	credentials, err := cs.tokens.RefreshCredentials(ctx, ident, validation.ExpiresAt, refreshToken)
	if err != nil {
		return nil, 0, errors.Wrap(err, "CredentialService.Refresh RefreshCredentials")
	}

	// The superseded record stays matchable by its triple; revoking it
	// marks the old access-token correlation dead.
	oldRecord, err := cs.store.FindMatching(ctx, accessToken, refreshToken, validation.UserID)
	if err == nil && oldRecord != nil {
		if err := cs.store.Revoke(ctx, oldRecord); err != nil {
			cs.logger.Warn().Err(err).Int64("user_id", validation.UserID).Msg("failed to revoke superseded refresh record")
		}
	}

	return credentials, token.RefreshAccepted, nil
}

// SendResetPasswordCode stores a short-lived 6-digit code on the identity
// and dispatches it by email, inside one all-or-nothing unit. Failures
// inside the unit are rolled back and reported as outcomes, never
// propagated.
func (cs *CredentialService) SendResetPasswordCode(ctx context.Context, userEmail string) ResetRequestOutcome {
	outcome := ResetRequestFailed

	err := cs.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ident, err := cs.ids.FindByEmail(ctx, userEmail)
		if err != nil {
			return errors.Wrap(err, "FindByEmail")
		}
		if ident == nil {
			outcome = ResetRequestNotFound
			return nil
		}

		// Non-cryptographic randomness is acceptable here: the code is
		// short-lived, single-purpose, and delivered out of band.
		code := fmt.Sprintf("%06d", rand.Intn(1000000))

		previousCode := ident.Code
		ident.Code = code
		if err := cs.ids.Update(ctx, ident); err != nil {
			outcome = ResetRequestUpdateFailed
			return errors.Wrap(err, "Update")
		}

		body := "Code To Reset Password : " + code
		if err := cs.emails.SendEmail(ctx, userEmail, body, "Reset Password Code"); err != nil {
			// The dispatcher sits outside the identity store's
			// transaction, so the stored code is restored in place; a
			// transactional store discards the restore together with
			// the original write.
			ident.Code = previousCode
			if restoreErr := cs.ids.Update(ctx, ident); restoreErr != nil {
				cs.logger.Error().Err(restoreErr).Str("email", userEmail).Msg("failed to restore reset code after send failure")
			}
			return errors.Wrap(err, "SendEmail")
		}

		outcome = ResetRequestSent
		return nil
	})
	if err != nil {
		cs.logger.Error().Err(err).Str("email", userEmail).Msg("send reset password code failed")
		if outcome == ResetRequestSent {
			outcome = ResetRequestFailed
		}
	}

	return outcome
}

// ConfirmResetPassword compares the submitted code against the stored
// one. Pure comparison: the stored code is not consumed, so it remains
// confirmable until a later SendResetPasswordCode overwrites it.
func (cs *CredentialService) ConfirmResetPassword(ctx context.Context, code, userEmail string) (ConfirmCodeOutcome, error) {
	ident, err := cs.ids.FindByEmail(ctx, userEmail)
	if err != nil {
		return ConfirmCodeNotFound, errors.Wrap(err, "CredentialService.ConfirmResetPassword FindByEmail")
	}
	if ident == nil {
		return ConfirmCodeNotFound, nil
	}

	if ident.Code == code {
		return ConfirmCodeMatched, nil
	}
	return ConfirmCodeMismatched, nil
}

// ResetPassword commits a password change through the identity
// collaborator's remove/add primitives, inside one all-or-nothing unit.
func (cs *CredentialService) ResetPassword(ctx context.Context, userEmail, password string) ResetPasswordOutcome {
	outcome := ResetPasswordFailed

	err := cs.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ident, err := cs.ids.FindByEmail(ctx, userEmail)
		if err != nil {
			return errors.Wrap(err, "FindByEmail")
		}
		if ident == nil {
			outcome = ResetPasswordNotFound
			return nil
		}

		if err := cs.ids.RemovePassword(ctx, ident); err != nil {
			return errors.Wrap(err, "RemovePassword")
		}

		hasPassword, err := cs.ids.HasPassword(ctx, ident)
		if err != nil {
			return errors.Wrap(err, "HasPassword")
		}
		if !hasPassword {
			if err := cs.ids.AddPassword(ctx, ident, password); err != nil {
				return errors.Wrap(err, "AddPassword")
			}
		}

		outcome = ResetPasswordSuccess
		return nil
	})
	if err != nil {
		cs.logger.Error().Err(err).Str("email", userEmail).Msg("reset password failed")
		if outcome == ResetPasswordSuccess {
			outcome = ResetPasswordFailed
		}
	}

	return outcome
}

// ConfirmEmail maps the identity collaborator's own email-confirmation
// primitive onto a typed outcome.
func (cs *CredentialService) ConfirmEmail(ctx context.Context, userID int64, code string) (ConfirmEmailOutcome, error) {
	confirmed, err := cs.ids.ConfirmEmail(ctx, userID, code)
	if err != nil {
		return ConfirmEmailError, errors.Wrap(err, "CredentialService.ConfirmEmail")
	}
	if !confirmed {
		return ConfirmEmailError, nil
	}
	return ConfirmEmailSuccess, nil
}
