package refresh

import (
	"context"

	"github.com/pkg/errors"
)

// Store wraps a Repo with the record lifecycle the issuance and
// validation flows need. It enforces nothing about uniqueness; avoiding
// duplicate live records per user is the caller's responsibility.
type Store struct {
	repo Repo
}

func NewStore(repo Repo) *Store {
	return &Store{repo: repo}
}

// Create persists a new record.
func (s *Store) Create(ctx context.Context, record *Record) error {
	if err := s.repo.Add(ctx, record); err != nil {
		return errors.Wrap(err, "Store.Create Add")
	}
	return nil
}

// FindMatching looks a record up by the exact (access token, refresh
// token, user id) triple. All three must match. Returns (nil, nil) when
// no record matches; revocation flags are not consulted.
func (s *Store) FindMatching(ctx context.Context, accessToken, refreshToken string, userID int64) (*Record, error) {
	record, err := s.repo.Find(ctx, accessToken, refreshToken, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Store.FindMatching Find")
	}
	return record, nil
}

// Revoke flips the record to revoked/unused and persists the change.
func (s *Store) Revoke(ctx context.Context, record *Record) error {
	record.IsRevoked = true
	record.IsUsed = false
	if err := s.repo.Update(ctx, record); err != nil {
		return errors.Wrap(err, "Store.Revoke Update")
	}
	return nil
}
