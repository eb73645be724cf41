package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counts caches the number of items in each user's cart. Entries expire
// after ttl plus up to a fifth of ttl of jitter. Each user also has a
// version that Delete moves forward; Set only writes while the version is
// the one Get reported, so a count read before a mutation is never cached.
type Counts struct {
	client *redis.Client
	ttl    time.Duration
}

// versionTTL keeps a version well past any count read still in flight.
const versionTTL = 24 * time.Hour

var errStale = errors.New("cart changed since the count was read")

func NewCounts(client *redis.Client, ttl time.Duration) *Counts {
	return &Counts{client: client, ttl: ttl}
}

func (c *Counts) Get(ctx context.Context, userID string) (int, int64, bool, error) {
	pipe := c.client.Pipeline()
	countCmd := pipe.Get(ctx, countKey(userID))
	verCmd := pipe.Get(ctx, versionKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, false, fmt.Errorf("redis get failed: %w", err)
	}

	ver, err := verCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, false, fmt.Errorf("parsing cart version: %w", err)
	}

	s, err := countCmd.Result()
	if errors.Is(err, redis.Nil) {
		return 0, ver, false, nil
	}
	if err != nil {
		return 0, ver, false, fmt.Errorf("redis get failed: %w", err)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ver, false, fmt.Errorf("parsing cached count %q: %w", s, err)
	}
	return n, ver, true, nil
}

// Set caches n unless the user's version has moved past ver.
func (c *Counts) Set(ctx context.Context, userID string, n int, ver int64) error {
	ttl := c.ttl
	if spread := int64(c.ttl / 5); spread > 0 {
		ttl += time.Duration(rand.Int63n(spread))
	}

	vkey := versionKey(userID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != ver {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, countKey(userID), n, ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil, errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete drops the cached count and moves the user's version forward.
func (c *Counts) Delete(ctx context.Context, userID string) error {
	vkey := versionKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, countKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func countKey(userID string) string {
	return "cart:count:" + userID
}

func versionKey(userID string) string {
	return "cart:version:" + userID
}
