//go:build unix

package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCallLockExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.call.lock")

	release, err := acquireCallLock(context.Background(), path, 5*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = acquireCallLock(ctx, path, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release, err = acquireCallLock(context.Background(), path, 5*time.Millisecond)
	require.NoError(t, err)
	release()
}

func TestAcquireCallLockChecksContextFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.call.lock")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := acquireCallLock(ctx, path, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, path)
}

func TestCallWithReadOnlyParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	parent := t.TempDir()
	root := filepath.Join(parent, "bridge")
	startServer(t, root, testMux())

	require.NoError(t, os.Chmod(parent, 0o555))
	t.Cleanup(func() { os.Chmod(parent, 0o755) })

	_, err := acquireCallLock(context.Background(), root+".call.lock", 5*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errCallLockUnavailable))

	result, err := newTestClient(t, root, 2*time.Second).Call(context.Background(), "ping", nil)
	require.NoError(t, err, "falls back to in-process serialization")
	assert.Equal(t, `"pong"`, string(result))
}
