package refresh

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Repo implementations when no record matches
// a lookup. The Store maps it to a plain nil result so callers branch
// without error handling.
var ErrNotFound = errors.New("refresh token record not found")

// Record is the persisted server-side state of an issued refresh token.
// JwtID correlates the record with the jti of the access token it was
// minted alongside; AccessToken is a denormalized copy of that token
// string used for the exact-triple lookup. Records are revoked in place,
// never deleted by this core.
type Record struct {
	ID           int64
	UserID       int64
	JwtID        string
	AccessToken  string
	RefreshToken string
	IsUsed       bool
	IsRevoked    bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Repo is the persistence collaborator for refresh-token records: an
// append-mostly log with in-place revocation updates. Find reads without
// transactional locking.
type Repo interface {
	Add(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	Find(ctx context.Context, accessToken, refreshToken string, userID int64) (*Record, error)
}
