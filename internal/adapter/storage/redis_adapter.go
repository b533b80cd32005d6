package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix = "order-code:"
	// codeReservationTTL bounds how long a crashed writer can hold a code.
	codeReservationTTL = 24 * time.Hour
)

// releaseCodeScript deletes a reservation only while it still belongs to the caller.
var releaseCodeScript = redis.NewScript(`
local key = KEYS[1]
local owner = ARGV[1]

local current = redis.call('GET', key)
if current == owner then
	redis.call('DEL', key)
	return 1
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) ReserveCode(ctx context.Context, code, orderID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, codeKeyPrefix+code, orderID, codeReservationTTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	// A retry by the same order keeps its claim.
	holder, err := r.client.Get(ctx, codeKeyPrefix+code).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return holder == orderID, nil
}

func (r *RedisAdapter) ReleaseCode(ctx context.Context, code, orderID string) error {
	return releaseCodeScript.Run(ctx, r.client, []string{codeKeyPrefix + code}, orderID).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
