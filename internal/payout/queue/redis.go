package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

const (
	keyOrder = "payout:deferred:order" // LIST de requestIds, em ordem de chegada
	keyItems = "payout:deferred:items" // HASH requestId -> JSON do PayoutRequest
)

// appendScript só insere se o id ainda não existir no hash.
var appendScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('RPUSH', KEYS[1], ARGV[1])
return 1
`)

// removeScript devolve 1 (removido), 0 (ausente) ou -n (id repetido/ausente na lista).
var removeScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 0 then
  return 0
end
local n = redis.call('LREM', KEYS[1], 0, ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
if n ~= 1 then
  return -1 - n
end
return 1
`)

// listScript lê ordem e itens no mesmo passo, sem janela para um Remove
// concorrente. Devolve pares id, json; um id ordenado sem item é erro ORPHAN.
var listScript = redis.NewScript(`
local ids = redis.call('LRANGE', KEYS[1], 0, -1)
local out = {}
for _, id in ipairs(ids) do
  local v = redis.call('HGET', KEYS[2], id)
  if not v then
    return redis.error_reply('ORPHAN ' .. id)
  end
  table.insert(out, id)
  table.insert(out, v)
end
return out
`)

// Redis guarda a fila compartilhada entre payout-service e payout-retry-worker.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis aceita um prefixo opcional para isolar ambientes (ex: testes).
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) keys() []string { return []string{r.prefix + keyOrder, r.prefix + keyItems} }

func (r *Redis) Append(ctx context.Context, req model.PayoutRequest) (bool, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return false, err
	}
	n, err := appendScript.Run(ctx, r.rdb, r.keys(), req.RequestID, b).Int()
	if err != nil {
		return false, fmt.Errorf("redis append: %w", err)
	}
	return n == 1, nil
}

func (r *Redis) Get(ctx context.Context, requestID string) (model.PayoutRequest, error) {
	b, err := r.rdb.HGet(ctx, r.prefix+keyItems, requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PayoutRequest{}, ErrNotQueued
	}
	if err != nil {
		return model.PayoutRequest{}, fmt.Errorf("redis get: %w", err)
	}
	var req model.PayoutRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return model.PayoutRequest{}, fmt.Errorf("%w: decode %s: %v", model.ErrQueueCorruption, requestID, err)
	}
	return req, nil
}

func (r *Redis) Remove(ctx context.Context, requestID string) (bool, error) {
	n, err := removeScript.Run(ctx, r.rdb, r.keys(), requestID).Int()
	if err != nil {
		return false, fmt.Errorf("redis remove: %w", err)
	}
	if n < 0 {
		return false, fmt.Errorf("%w: %s appeared %d times in order", model.ErrQueueCorruption, requestID, -1-n)
	}
	return n == 1, nil
}

func (r *Redis) List(ctx context.Context) ([]model.PayoutRequest, error) {
	pairs, err := listScript.Run(ctx, r.rdb, r.keys()).StringSlice()
	if err != nil {
		if _, id, ok := strings.Cut(err.Error(), "ORPHAN "); ok {
			return nil, fmt.Errorf("%w: %s ordered but not stored", model.ErrQueueCorruption, id)
		}
		return nil, fmt.Errorf("redis list: %w", err)
	}
	out := make([]model.PayoutRequest, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		var req model.PayoutRequest
		if err := json.Unmarshal([]byte(pairs[i+1]), &req); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", model.ErrQueueCorruption, pairs[i], err)
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.rdb.LLen(ctx, r.prefix+keyOrder).Result()
	return int(n), err
}
