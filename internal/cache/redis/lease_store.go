package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arenalabs/debatearena/internal/domain"
)

// acquireLua sets the lease only when it is absent or already held by the
// caller, so a crashed-and-restarted owner can reclaim its own debates.
const acquireLua = `
local cur = redis.call('GET', KEYS[1])
if cur == false or cur == ARGV[1] then
    redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
    return 1
end
return 0
`

// renewLua extends the TTL only while the caller still holds the lease.
const renewLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// releaseLua deletes the lease only if the caller holds it, never another
// instance's live lease.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LeaseStore implements domain.LeaseStore on Redis SET PX plus compare-owner
// Lua scripts, so every mutation is a single atomic server-side operation.
type LeaseStore struct {
	rdb       *redis.Client
	acquireSc *redis.Script
	renewSc   *redis.Script
	releaseSc *redis.Script
}

// NewLeaseStore creates a LeaseStore backed by the given Client.
func NewLeaseStore(c *Client) *LeaseStore {
	return &LeaseStore{
		rdb:       c.Underlying(),
		acquireSc: redis.NewScript(acquireLua),
		renewSc:   redis.NewScript(renewLua),
		releaseSc: redis.NewScript(releaseLua),
	}
}

func leaseKey(key string) string {
	return "lease:debate:" + key
}

// Acquire atomically claims the lease for owner unless another live owner
// holds it.
func (ls *LeaseStore) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := ls.acquireSc.Run(ctx, ls.rdb, []string{leaseKey(key)}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lease %s: %w", key, err)
	}
	return res == 1, nil
}

// Renew extends the lease only while owner still holds it.
func (ls *LeaseStore) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := ls.renewSc.Run(ctx, ls.rdb, []string{leaseKey(key)}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: renew lease %s: %w", key, err)
	}
	return res == 1, nil
}

// Release deletes the lease only if owner holds it.
func (ls *LeaseStore) Release(ctx context.Context, key, owner string) error {
	if err := ls.releaseSc.Run(ctx, ls.rdb, []string{leaseKey(key)}, owner).Err(); err != nil {
		return fmt.Errorf("redis: release lease %s: %w", key, err)
	}
	return nil
}

// Owner returns the current holder of the lease, or "" when none is live.
func (ls *LeaseStore) Owner(ctx context.Context, key string) (string, error) {
	owner, err := ls.rdb.Get(ctx, leaseKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: lease owner %s: %w", key, err)
	}
	return owner, nil
}

// Compile-time interface check.
var _ domain.LeaseStore = (*LeaseStore)(nil)
