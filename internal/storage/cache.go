package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const userCachePrefix = "orders-admin:user:"

// CachedDirectory кэширует GetUserByID в Redis. Страницы каталога не кэшируются.
// Ошибки Redis только логируются, запрос уходит в базовый каталог.
type CachedDirectory struct {
	next  UserDirectory
	redis redis.UniversalClient
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedDirectory(log *slog.Logger, next UserDirectory, client redis.UniversalClient, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, redis: client, ttl: ttl, log: log}
}

func (c *CachedDirectory) ListUsersPage(ctx context.Context, cursor string, limit int) (*UserPage, error) {
	return c.next.ListUsersPage(ctx, cursor, limit)
}

func (c *CachedDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.CachedDirectory.GetUserByID"
	log := c.log.With(slog.String("op", op), slog.String("user_id", id))

	key := userCachePrefix + id
	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user models.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
		log.Warn("dropping malformed cache entry")
		_ = c.redis.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		log.Warn("cache read failed", slog.Any("error", err))
	}

	user, err := c.next.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return user, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn("cache write failed", slog.Any("error", err))
	}
	return user, nil
}
