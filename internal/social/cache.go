package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ProfileSource interface {
	GetUserByUsername(ctx context.Context, username string) (*model.SocialProfile, error)
}

// ProfileCache keeps social profiles in redis for ttl. Cache failures fall
// through to the wrapped source.
type ProfileCache struct {
	next   ProfileSource
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(next ProfileSource, client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{next: next, client: client, ttl: ttl}
}

func (c *ProfileCache) key(username string) string {
	return fmt.Sprintf("social:profile:%s", strings.ToLower(username))
}

func (c *ProfileCache) GetUserByUsername(ctx context.Context, username string) (*model.SocialProfile, error) {
	log := logger.Logger()

	cached, err := c.client.Get(ctx, c.key(username)).Bytes()
	switch {
	case err == nil:
		var p model.SocialProfile
		if err := json.Unmarshal(cached, &p); err == nil {
			return &p, nil
		}
		log.Warn("dropping undecodable cached profile", zap.String("username", username))
	case !errors.Is(err, redis.Nil):
		log.Warn("profile cache read failed", zap.String("username", username), zap.Error(err))
	}

	p, err := c.next.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, c.key(username), b, c.ttl).Err(); err != nil {
			log.Warn("profile cache write failed", zap.String("username", username), zap.Error(err))
		}
	}

	return p, nil
}

// Invalidate drops the cached profile so the next lookup hits the platform.
func (c *ProfileCache) Invalidate(ctx context.Context, username string) error {
	return c.client.Del(ctx, c.key(username)).Err()
}
