package settle

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keySettled = "payout:settled:" // STRING por jogo, sem TTL

// releaseScript só apaga a chave se ela ainda for uma reserva.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis compartilha as marcas entre réplicas do payout-service.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(gameID string) string { return r.prefix + keySettled + gameID }

func (r *Redis) Reserve(ctx context.Context, gameID string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(gameID), MarkPaying, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis reserve: %w", err)
	}
	return ok, nil
}

func (r *Redis) Finalize(ctx context.Context, gameID, mark string) error {
	if err := r.rdb.Set(ctx, r.key(gameID), mark, 0).Err(); err != nil {
		return fmt.Errorf("redis finalize: %w", err)
	}
	return nil
}

func (r *Redis) Release(ctx context.Context, gameID string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{r.key(gameID)}, MarkPaying).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

func (r *Redis) Lookup(ctx context.Context, gameID string) (string, bool, error) {
	mark, err := r.rdb.Get(ctx, r.key(gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis lookup: %w", err)
	}
	return mark, true, nil
}
