// Package redisclient opens the Redis connection shared by the encounter link store, the
// notification read-state cache and the readiness check.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options carries the connection settings from config. Zero timeouts and pool size fall back to
// values sized for short link and read-state lookups.
type Options struct {
	Addr        string
	Username    string
	Password    string
	OpTimeout   time.Duration
	PoolSize    int
	PingTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.OpTimeout <= 0 {
		o.OpTimeout = 2 * time.Second
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 10
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	return o
}

// Connect returns a client that has answered a PING. A caller that cannot reach Redis at startup
// should not serve encounters, since links would be lost.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	opts = opts.withDefaults()
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		ReadTimeout:  opts.OpTimeout,
		WriteTimeout: opts.OpTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s unreachable: %w", opts.Addr, err)
	}

	return rdb, nil
}
