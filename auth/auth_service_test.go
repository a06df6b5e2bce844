package auth_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/email/dispatcherfake"
	"github.com/jrsteele09/go-credential-service/identity"
	identityrepofake "github.com/jrsteele09/go-credential-service/identity/repofake"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-credential-service/token/refresh/repofake"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

type testFixture struct {
	identities *identityrepofake.FakeIdentityRepo
	repo       *refreshrepofake.FakeRefreshTokenRepo
	emails     *dispatcherfake.FakeDispatcher
	codec      *token.Codec
	service    *auth.CredentialService
}

func testJwtConfig() config.Jwt {
	return config.Jwt{
		Issuer:                   "com.testissuer",
		Audience:                 "api",
		Secret:                   "test-signing-secret",
		Algorithm:                "HS256",
		AccessTokenExpireDays:    1,
		RefreshTokenExpireMonths: 3,
		IssuerValidation:         true,
		AudienceValidation:       true,
		SigningKeyValidation:     true,
		LifetimeValidation:       true,
	}
}

func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	previous := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return at }
	t.Cleanup(func() { token.NowTimeFunc = previous })
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	cfg := testJwtConfig()
	signer := token.NewHMACSigner(cfg.Secret)
	codec := token.NewCodec(signer, cfg)

	identities := identityrepofake.NewFakeIdentityRepo()
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	store := refresh.NewStore(repo)
	emails := dispatcherfake.NewFakeDispatcher()

	tokens := token.NewManager(token.NewClaimsBuilder(identities), codec, store, cfg)
	validator := token.NewValidator(signer, store, cfg)

	service, err := auth.NewCredentialService(
		auth.Collaborators{
			Identities: identities,
			Store:      store,
			Emails:     emails,
		},
		tokens,
		codec,
		validator,
	)
	require.NoError(t, err)

	return &testFixture{
		identities: identities,
		repo:       repo,
		emails:     emails,
		codec:      codec,
		service:    service,
	}
}

func (f *testFixture) createTestUser(t *testing.T, ident *identity.Identity, password string) {
	t.Helper()

	hash, err := identity.HashPassword(password)
	require.NoError(t, err)
	ident.PasswordHash = hash
	require.NoError(t, f.identities.Upsert(ident))
}

func TestNewCredentialService_RequiredCollaborators(t *testing.T) {
	f := setupTestFixture(t)

	_, err := auth.NewCredentialService(auth.Collaborators{}, nil, nil, nil)
	require.Error(t, err)

	_, err = auth.NewCredentialService(
		auth.Collaborators{Identities: f.identities, Store: refresh.NewStore(f.repo)},
		nil, nil, nil,
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "email dispatcher is required")
}

func TestCredentialService_Login(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.createTestUser(t, &identity.Identity{
		ID:       7,
		Username: "john.doe",
		Email:    testUserEmail,
		Roles:    []string{"Admin"},
	}, testUserPassword)

	t.Run("issues a credential pair", func(t *testing.T) {
		credentials, err := f.service.Login(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)
		require.NotEmpty(t, credentials.AccessToken)
		require.NotEmpty(t, credentials.RefreshToken.TokenString)

		handle, err := f.codec.Decode(credentials.AccessToken)
		require.NoError(t, err)
		id, err := handle.Claims.UserID()
		require.NoError(t, err)
		require.Equal(t, int64(7), id)
		require.Equal(t, []string{"Admin"}, handle.Claims.Roles())

		records := f.repo.All()
		require.NotEmpty(t, records)
		latest := records[len(records)-1]
		require.True(t, latest.IsUsed)
		require.False(t, latest.IsRevoked)
		require.Equal(t, credentials.AccessToken, latest.AccessToken)
	})

	t.Run("issued token authorizes", func(t *testing.T) {
		credentials, err := f.service.Login(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)

		result := f.service.Authorize(credentials.AccessToken)
		require.Equal(t, token.StatusValid, result.Status)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.service.Login(ctx, "nobody@example.com", testUserPassword)
		require.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.Login(ctx, testUserEmail, "wrong-password")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestCredentialService_Refresh(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	login := func(t *testing.T, f *testFixture) *token.Credentials {
		t.Helper()
		freezeTime(t, issuedAt)
		credentials, err := f.service.Login(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)
		return credentials
	}

	t.Run("rejected while access token is live", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)
		credentials := login(t, f)

		refreshed, status, err := f.service.Refresh(ctx, credentials.AccessToken, credentials.RefreshToken.TokenString)
		require.NoError(t, err)
		require.Equal(t, token.RefreshNotYetExpired, status)
		require.Nil(t, refreshed)
	})

	t.Run("accepted once expired", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)
		credentials := login(t, f)

		freezeTime(t, issuedAt.AddDate(0, 0, 2))
		refreshed, status, err := f.service.Refresh(ctx, credentials.AccessToken, credentials.RefreshToken.TokenString)
		require.NoError(t, err)
		require.Equal(t, token.RefreshAccepted, status)
		require.NotNil(t, refreshed)

		require.NotEqual(t, credentials.AccessToken, refreshed.AccessToken)
		require.Equal(t, credentials.RefreshToken.TokenString, refreshed.RefreshToken.TokenString)
		require.Equal(t, token.StatusValid, f.service.Authorize(refreshed.AccessToken).Status)

		// The superseded record is revoked; the new one is live.
		records := f.repo.All()
		require.Len(t, records, 2)
		require.True(t, records[0].IsRevoked)
		require.False(t, records[0].IsUsed)
		require.False(t, records[1].IsRevoked)
		require.True(t, records[1].IsUsed)
		require.Equal(t, refreshed.AccessToken, records[1].AccessToken)
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)
		credentials := login(t, f)

		freezeTime(t, issuedAt.AddDate(0, 0, 2))
		_, status, err := f.service.Refresh(ctx, credentials.AccessToken, "unknown-refresh-secret")
		require.NoError(t, err)
		require.Equal(t, token.RefreshRecordNotFound, status)
	})

	t.Run("refresh record past its own expiry", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)
		credentials := login(t, f)

		freezeTime(t, issuedAt.AddDate(0, 4, 0))
		_, status, err := f.service.Refresh(ctx, credentials.AccessToken, credentials.RefreshToken.TokenString)
		require.NoError(t, err)
		require.Equal(t, token.RefreshRecordExpired, status)

		records := f.repo.All()
		require.Len(t, records, 1)
		require.True(t, records[0].IsRevoked)
	})

	t.Run("malformed access token", func(t *testing.T) {
		f := setupTestFixture(t)
		_, _, err := f.service.Refresh(ctx, "not-a-jwt", "refresh-secret")
		require.Error(t, err)
		require.ErrorIs(t, err, token.ErrMalformedToken)
	})
}

func TestCredentialService_SendResetPasswordCode(t *testing.T) {
	ctx := context.Background()
	codePattern := regexp.MustCompile(`^Code To Reset Password : (\d{6})$`)

	t.Run("stores a six digit code and emails it", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)

		outcome := f.service.SendResetPasswordCode(ctx, testUserEmail)
		require.Equal(t, auth.ResetRequestSent, outcome)

		sent := f.emails.SentEmails()
		require.Len(t, sent, 1)
		require.Equal(t, testUserEmail, sent[0].To)
		require.Equal(t, "Reset Password Code", sent[0].Subject)

		matches := codePattern.FindStringSubmatch(sent[0].Body)
		require.NotNil(t, matches, "body %q", sent[0].Body)

		ident, err := f.identities.FindByEmail(ctx, testUserEmail)
		require.NoError(t, err)
		require.Equal(t, matches[1], ident.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := setupTestFixture(t)
		outcome := f.service.SendResetPasswordCode(ctx, "nobody@example.com")
		require.Equal(t, auth.ResetRequestNotFound, outcome)
		require.Empty(t, f.emails.SentEmails())
	})

	t.Run("identity update failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)
		f.identities.UpdateErr = errors.New("storage down")

		outcome := f.service.SendResetPasswordCode(ctx, testUserEmail)
		require.Equal(t, auth.ResetRequestUpdateFailed, outcome)
		require.Empty(t, f.emails.SentEmails())

		ident, err := f.identities.FindByEmail(ctx, testUserEmail)
		require.NoError(t, err)
		require.Empty(t, ident.Code)
	})

	t.Run("dispatch failure leaves no stored code", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)
		f.emails.SendErr = errors.New("smtp down")

		outcome := f.service.SendResetPasswordCode(ctx, testUserEmail)
		require.Equal(t, auth.ResetRequestFailed, outcome)

		ident, err := f.identities.FindByEmail(ctx, testUserEmail)
		require.NoError(t, err)
		require.Empty(t, ident.Code)
	})

	t.Run("dispatch failure keeps the previous code", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail, Code: "111111"}, testUserPassword)
		f.emails.SendErr = errors.New("smtp down")

		outcome := f.service.SendResetPasswordCode(ctx, testUserEmail)
		require.Equal(t, auth.ResetRequestFailed, outcome)

		ident, err := f.identities.FindByEmail(ctx, testUserEmail)
		require.NoError(t, err)
		require.Equal(t, "111111", ident.Code)
	})
}

func TestCredentialService_ConfirmResetPassword(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail, Code: "123456"}, testUserPassword)

	t.Run("matched", func(t *testing.T) {
		outcome, err := f.service.ConfirmResetPassword(ctx, "123456", testUserEmail)
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmCodeMatched, outcome)
	})

	t.Run("code survives confirmation", func(t *testing.T) {
		outcome, err := f.service.ConfirmResetPassword(ctx, "123456", testUserEmail)
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmCodeMatched, outcome)
	})

	t.Run("mismatched", func(t *testing.T) {
		outcome, err := f.service.ConfirmResetPassword(ctx, "654321", testUserEmail)
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmCodeMismatched, outcome)
	})

	t.Run("unknown email", func(t *testing.T) {
		outcome, err := f.service.ConfirmResetPassword(ctx, "123456", "nobody@example.com")
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmCodeNotFound, outcome)
	})
}

func TestCredentialService_ResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the password", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)

		outcome := f.service.ResetPassword(ctx, testUserEmail, "new-password")
		require.Equal(t, auth.ResetPasswordSuccess, outcome)

		_, err := f.service.Login(ctx, testUserEmail, testUserPassword)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = f.service.Login(ctx, testUserEmail, "new-password")
		require.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := setupTestFixture(t)
		outcome := f.service.ResetPassword(ctx, "nobody@example.com", "new-password")
		require.Equal(t, auth.ResetPasswordNotFound, outcome)
	})
}

func TestCredentialService_ConfirmEmail(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.createTestUser(t, &identity.Identity{ID: 7, Username: "john.doe", Email: testUserEmail}, testUserPassword)

	t.Run("confirms the identity", func(t *testing.T) {
		outcome, err := f.service.ConfirmEmail(ctx, 7, "confirmation-code")
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmEmailSuccess, outcome)

		ident, err := f.identities.FindByID(ctx, 7)
		require.NoError(t, err)
		require.True(t, ident.EmailConfirmed)
	})

	t.Run("rejected code", func(t *testing.T) {
		outcome, err := f.service.ConfirmEmail(ctx, 7, "")
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmEmailError, outcome)
	})

	t.Run("unknown identity", func(t *testing.T) {
		outcome, err := f.service.ConfirmEmail(ctx, 999, "confirmation-code")
		require.NoError(t, err)
		require.Equal(t, auth.ConfirmEmailError, outcome)
	})
}
