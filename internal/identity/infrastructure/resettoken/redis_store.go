// Package resettoken stores single-use password reset grants in Redis.
package resettoken

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/identity/application/auth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces reset grants. Keys hold a digest of the token, never
// the token itself.
const KeyPrefix = "billcycle:reset:"

// RedisStore implements auth.ResetTokenStore.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store on client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

type grantRecord struct {
	UserID      string `json:"user_id"`
	Fingerprint string `json:"fingerprint"`
}

// Put stores grant under token until ttl elapses.
func (s *RedisStore) Put(ctx context.Context, token string, grant auth.ResetGrant, ttl time.Duration) error {
	payload, err := json.Marshal(grantRecord{
		UserID:      grant.UserID.String(),
		Fingerprint: grant.Fingerprint,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// Consume returns and deletes the grant for token. It returns nil when the
// token is unknown, expired, or already used.
func (s *RedisStore) Consume(ctx context.Context, token string) (*auth.ResetGrant, error) {
	payload, err := s.client.GetDel(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	var rec grantRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	userID, err := uuid.Parse(rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	return &auth.ResetGrant{UserID: userID, Fingerprint: rec.Fingerprint}, nil
}

func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
