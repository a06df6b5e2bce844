package redisrepo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-credential-service/token/refresh"
)

var _ refresh.Repo = (*Repo)(nil)

// Repo is the Redis-backed refresh-token repository. Records are stored
// as JSON values keyed by a digest of the exact lookup triple, which
// makes FindMatching a single GET. Keys carry no TTL: expired records
// must stay readable so the refresh flow can revoke them in place.
type Repo struct {
	redis  redis.UniversalClient
	prefix string
}

func New(redisClient redis.UniversalClient, prefix string) *Repo {
	if prefix == "" {
		prefix = "crt"
	}
	return &Repo{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (r *Repo) key(accessToken, refreshToken string, userID int64) string {
	digest := sha256.New()
	digest.Write([]byte(accessToken))
	digest.Write([]byte{0})
	digest.Write([]byte(refreshToken))
	digest.Write([]byte{0})
	digest.Write([]byte(strconv.FormatInt(userID, 10)))
	return r.prefix + ":" + hex.EncodeToString(digest.Sum(nil))
}

func (r *Repo) Add(ctx context.Context, record *refresh.Record) error {
	return r.set(ctx, record)
}

func (r *Repo) Update(ctx context.Context, record *refresh.Record) error {
	key := r.key(record.AccessToken, record.RefreshToken, record.UserID)
	exists, err := r.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check refresh token record: %w", err)
	}
	if exists == 0 {
		return refresh.ErrNotFound
	}
	return r.set(ctx, record)
}

func (r *Repo) Find(ctx context.Context, accessToken, refreshToken string, userID int64) (*refresh.Record, error) {
	data, err := r.redis.Get(ctx, r.key(accessToken, refreshToken, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, refresh.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token record: %w", err)
	}

	record := &refresh.Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token record: %w", err)
	}
	return record, nil
}

func (r *Repo) set(ctx context.Context, record *refresh.Record) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode refresh token record: %w", err)
	}

	key := r.key(record.AccessToken, record.RefreshToken, record.UserID)
	if err := r.redis.Set(ctx, key, encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token record: %w", err)
	}
	return nil
}
