// Package lease provides the per-account send lease. At most one
// dispatcher run works a sending account at a time; the lease is the
// only cross-process coordination the engine needs.
//
// Redis is the preferred backend when available (cross-host, TTL
// expiry on crash). Without Redis, PostgreSQL advisory locks provide
// the same guarantee: session-scoped, released when the connection
// drops.
package lease

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease is a single-holder claim on a sending account. Instances are
// for one acquire/release cycle from one goroutine.
type Lease interface {
	// Acquire tries to take the lease. Returns true on success, false
	// when another holder has it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lease back if we still hold it.
	Release(ctx context.Context) error
}

// ForAccount creates a send lease for the given sending account using
// the best available backend.
func ForAccount(redisClient *redis.Client, db *sql.DB, account string, ttl time.Duration) Lease {
	if redisClient != nil {
		return NewRedisLease(redisClient, account, ttl)
	}
	return NewPGAdvisoryLease(db, account)
}

// PGAdvisoryLease implements Lease with pg_try_advisory_lock. The lock
// ID is derived deterministically from the account name.
type PGAdvisoryLease struct {
	db     *sql.DB
	lockID int64
}

func NewPGAdvisoryLease(db *sql.DB, account string) *PGAdvisoryLease {
	h := fnv.New64a()
	h.Write([]byte("send-account:" + account))
	return &PGAdvisoryLease{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire is non-blocking; pg_try_advisory_lock returns immediately.
func (l *PGAdvisoryLease) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

func (l *PGAdvisoryLease) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
