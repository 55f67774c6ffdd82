//go:build !unix

package bridge

import (
	"context"
	"time"
)

// acquireCallLock is a no-op where flock is unavailable; only the
// in-process slot serializes calls.
func acquireCallLock(ctx context.Context, path string, interval time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
