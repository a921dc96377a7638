package notify

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// Deduper remembers which notification ids this process already relayed.
type Deduper interface {
    // First reports whether id is seen for the first time.
    First(ctx context.Context, id string) (bool, error)
}

// RedisDeduper marks ids with SETNX so that a redelivered broker message
// is relayed once per instance.  The fanout exchange hands every
// notification to every instance, so keys carry an instance id and one
// instance marking an id never hides it from another.
type RedisDeduper struct {
    rdb    *redis.Client
    prefix string
    ttl    time.Duration
}

// NewRedisDeduper scopes keys under prefix followed by a random id
// generated for this deduper.  Build one per process.
func NewRedisDeduper(rdb *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
    if ttl <= 0 {
        ttl = 10 * time.Minute
    }
    return &RedisDeduper{rdb: rdb, prefix: prefix + uuid.NewString() + ":", ttl: ttl}
}

// Prefix returns the instance-scoped key prefix.
func (d *RedisDeduper) Prefix() string { return d.prefix }

func (d *RedisDeduper) First(ctx context.Context, id string) (bool, error) {
    return d.rdb.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
}

// MemoryDeduper is used when Redis is not configured.  Entries expire
// after ttl and are pruned lazily.
type MemoryDeduper struct {
    mu   sync.Mutex
    seen map[string]time.Time
    ttl  time.Duration
    now  func() time.Time
}

// NewMemoryDeduper returns an in-process deduper.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
    if ttl <= 0 {
        ttl = 10 * time.Minute
    }
    return &MemoryDeduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *MemoryDeduper) First(_ context.Context, id string) (bool, error) {
    d.mu.Lock()
    defer d.mu.Unlock()
    now := d.now()
    if exp, ok := d.seen[id]; ok && now.Before(exp) {
        return false, nil
    }
    if len(d.seen) > 4096 {
        for k, exp := range d.seen {
            if !now.Before(exp) {
                delete(d.seen, k)
            }
        }
    }
    d.seen[id] = now.Add(d.ttl)
    return true, nil
}
