package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token, so
// an expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisTableLock serializes reservation creation per table across server
// instances.  Locks expire after ttl so a crashed holder cannot block a
// table forever.
type RedisTableLock struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisTableLock(rdb redis.Cmdable, ttl time.Duration) *RedisTableLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisTableLock{rdb: rdb, ttl: ttl, prefix: "lock:table:"}
}

// Lock takes the lock for tableID or fails with ErrTableUnavailable when
// another request holds it.  The returned func releases the lock.
func (l *RedisTableLock) Lock(ctx context.Context, tableID uuid.UUID) (func(), error) {
	key := l.prefix + tableID.String()
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, storeErr("acquire table lock", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %s is being reserved", ErrTableUnavailable, tableID)
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
			log.Printf("table-lock: release %s failed: %v", key, err)
		}
	}, nil
}
