package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/billing"
)

const (
	profileKeyPrefix  = "profile:"
	profileCacheName  = "profile"
	defaultProfileTTL = 5 * time.Minute
)

// ProfileCache implements billing.ProfileCache on Redis.
type ProfileCache struct {
	client   redis.UniversalClient
	ttl      time.Duration
	recorder Recorder
}

// NewProfileCache creates a profile cache with the given entry lifetime.
func NewProfileCache(client redis.UniversalClient, ttl time.Duration, recorder Recorder) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ProfileCache{client: client, ttl: ttl, recorder: recorder}
}

var _ billing.ProfileCache = (*ProfileCache)(nil)

func (c *ProfileCache) key(userID uuid.UUID) string {
	return profileKeyPrefix + userID.String()
}

// Get returns the cached profile or billing.ErrCacheMiss.
func (c *ProfileCache) Get(ctx context.Context, userID uuid.UUID) (*account.Profile, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.recorder.RecordCacheMiss(profileCacheName)
			return nil, billing.ErrCacheMiss
		}
		return nil, fmt.Errorf("get cached profile: %w", err)
	}

	var profile account.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		// A corrupt entry is treated as absent and overwritten by the next refresh.
		c.recorder.RecordCacheMiss(profileCacheName)
		return nil, billing.ErrCacheMiss
	}
	c.recorder.RecordCacheHit(profileCacheName)
	return &profile, nil
}

func (c *ProfileCache) Set(ctx context.Context, profile *account.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.client.Set(ctx, c.key(profile.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache profile: %w", err)
	}
	return nil
}

func (c *ProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate profile: %w", err)
	}
	return nil
}
