package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-service/token/refresh"
	"github.com/jrsteele09/go-credential-service/token/refresh/redisrepo"
)

func newTestRepo(t *testing.T) *redisrepo.Repo {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisrepo.New(client, "")
}

func testRecord(userID int64, accessToken, refreshToken string) *refresh.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &refresh.Record{
		ID:           1,
		UserID:       userID,
		JwtID:        "jwt-" + accessToken,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IsUsed:       true,
		CreatedAt:    now,
		ExpiresAt:    now.AddDate(0, 3, 0),
	}
}

func TestRepo_AddAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	record := testRecord(7, "access-1", "refresh-1")
	require.NoError(t, repo.Add(ctx, record))

	t.Run("exact triple", func(t *testing.T) {
		found, err := repo.Find(ctx, "access-1", "refresh-1", 7)
		require.NoError(t, err)
		require.Equal(t, record.UserID, found.UserID)
		require.Equal(t, record.JwtID, found.JwtID)
		require.True(t, found.IsUsed)
		require.False(t, found.IsRevoked)
		require.True(t, record.ExpiresAt.Equal(found.ExpiresAt))
	})

	t.Run("any mismatched component misses", func(t *testing.T) {
		for _, tc := range []struct {
			name                      string
			accessToken, refreshToken string
			userID                    int64
		}{
			{"wrong access token", "access-2", "refresh-1", 7},
			{"wrong refresh token", "access-1", "refresh-2", 7},
			{"wrong user id", "access-1", "refresh-1", 8},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, err := repo.Find(ctx, tc.accessToken, tc.refreshToken, tc.userID)
				require.ErrorIs(t, err, refresh.ErrNotFound)
			})
		}
	})
}

func TestRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	record := testRecord(7, "access-1", "refresh-1")
	require.NoError(t, repo.Add(ctx, record))

	record.IsRevoked = true
	record.IsUsed = false
	require.NoError(t, repo.Update(ctx, record))

	found, err := repo.Find(ctx, "access-1", "refresh-1", 7)
	require.NoError(t, err)
	require.True(t, found.IsRevoked)
	require.False(t, found.IsUsed)
}

func TestRepo_Update_UnknownRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	record := testRecord(7, "access-1", "refresh-1")
	require.ErrorIs(t, repo.Update(ctx, record), refresh.ErrNotFound)
}

func TestRepo_ExpiredRecordStaysReadable(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	record := testRecord(7, "access-1", "refresh-1")
	record.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Add(ctx, record))

	found, err := repo.Find(ctx, "access-1", "refresh-1", 7)
	require.NoError(t, err)
	require.True(t, found.ExpiresAt.Before(time.Now().UTC()))
}
