package redis

import (
	"context"
	"time"

	"github.com/turtacn/community-intelligence/pkg/errors"
)

// IncrWindow counts one hit against key in a fixed window of length window.
// It returns the hit count of the current window and the time left until the
// window resets.  The first hit of a window starts its expiry.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c.isClosed() {
		return 0, 0, ErrClientClosed
	}
	if window <= 0 {
		return 0, 0, errors.InvalidParam("window must be positive")
	}

	full := c.Key("ratelimit", key)
	count, err := c.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "redis INCR failed")
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, full, window).Err(); err != nil {
			return 0, 0, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "redis EXPIRE failed")
		}
		return count, window, nil
	}

	ttl, err := c.rdb.PTTL(ctx, full).Result()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "redis PTTL failed")
	}
	if ttl < 0 {
		// Counter survived without an expiry, e.g. the process died between
		// INCR and EXPIRE.
		if err := c.rdb.Expire(ctx, full, window).Err(); err != nil {
			return 0, 0, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "redis EXPIRE failed")
		}
		ttl = window
	}
	return count, ttl, nil
}
