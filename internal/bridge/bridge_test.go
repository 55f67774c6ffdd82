package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/berrythewa/filebridge/internal/ipc"
	"github.com/berrythewa/filebridge/internal/types"
)

const (
	testServerPoll = 5 * time.Millisecond
	testClientPoll = 5 * time.Millisecond
)

type memJournal struct {
	mu      sync.Mutex
	records []types.CallRecord
}

func (j *memJournal) Record(record *types.CallRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, *record)
	return nil
}

func (j *memJournal) snapshot() []types.CallRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]types.CallRecord(nil), j.records...)
}

func testRoot(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bridge")
}

func startServer(t *testing.T, root string, handler Handler, mutate ...func(*ServerConfig)) *Server {
	t.Helper()
	cfg := ServerConfig{
		Dir:          root,
		PollInterval: testServerPoll,
		Logger:       zaptest.NewLogger(t),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	server := NewServer(cfg, handler)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Stop() })
	return server
}

func newTestClient(t *testing.T, root string, timeout time.Duration) *Client {
	t.Helper()
	return NewClient(ClientConfig{
		Dir:          root,
		Timeout:      timeout,
		PollInterval: testClientPoll,
		ReadGrace:    -1,
		Logger:       zaptest.NewLogger(t),
	})
}

func testMux() *Mux {
	mux := NewMux()
	mux.Register("ping", func(ctx context.Context, params json.RawMessage) (any, error) {
		return "pong", nil
	})
	mux.Register("echo", func(ctx context.Context, params json.RawMessage) (any, error) {
		return params, nil
	})
	mux.Register("explode", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	})
	return mux
}

func TestCallPing(t *testing.T) {
	root := testRoot(t)
	startServer(t, root, testMux())
	client := newTestClient(t, root, 2*time.Second)

	result, err := client.Call(context.Background(), "ping", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, `"pong"`, string(result))

	var pong string
	require.NoError(t, client.CallInto(context.Background(), "ping", nil, &pong))
	assert.Equal(t, "pong", pong)

	assert.Empty(t, ipc.NewDir(root).Present(), "a finished exchange leaves the directory empty")
}

func TestCallResultFidelity(t *testing.T) {
	root := testRoot(t)
	results := []string{
		`{"nested":{"list":[1,2.5,-3e-7,true,null],"text":"üñí\n\"quoted\""},"empty":{}}`,
		`[]`,
		`"plain"`,
		`12345678901234567890`,
		`null`,
	}
	var next atomic.Int32
	startServer(t, root, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		return json.RawMessage(results[next.Load()]), nil
	}))
	client := newTestClient(t, root, 2*time.Second)

	for i, want := range results {
		next.Store(int32(i))
		got, err := client.Call(context.Background(), "any", map[string]any{"i": i})
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestCallSendsParams(t *testing.T) {
	root := testRoot(t)
	startServer(t, root, testMux())
	client := newTestClient(t, root, 2*time.Second)

	params := map[string]any{"name": "frame", "count": 3, "tags": []string{"a", "b"}}
	result, err := client.Call(context.Background(), "echo", params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"frame","count":3,"tags":["a","b"]}`, string(result))

	result, err = client.Call(context.Background(), "echo", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(result), "nil params are sent as an empty object")
}

func TestCallRemoteError(t *testing.T) {
	root := testRoot(t)
	mux := testMux()
	mux.Register("picky", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, ipc.Errorf(ipc.CodeInvalidParams, "missing field %q", "name")
	})
	mux.Register("panics", func(ctx context.Context, params json.RawMessage) (any, error) {
		panic("kaboom")
	})
	startServer(t, root, mux)
	client := newTestClient(t, root, 2*time.Second)

	tests := []struct {
		method  string
		code    int
		message string
	}{
		{"explode", ipc.CodeInternalError, "boom"},
		{"picky", ipc.CodeInvalidParams, `missing field "name"`},
		{"panics", ipc.CodeInternalError, "kaboom"},
		{"unknown", ipc.CodeMethodNotFound, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := client.Call(context.Background(), tt.method, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRemote))

			var bridgeErr *Error
			require.True(t, errors.As(err, &bridgeErr))
			assert.Equal(t, tt.code, bridgeErr.Code)
			assert.Contains(t, bridgeErr.Message, tt.message)
			assert.Contains(t, err.Error(), fmt.Sprint(tt.code))
		})
	}

	// the server keeps serving after failures
	_, err := client.Call(context.Background(), "ping", nil)
	assert.NoError(t, err)
}

func TestCallConnectionError(t *testing.T) {
	client := newTestClient(t, testRoot(t), 5*time.Second)

	start := time.Now()
	_, err := client.Call(context.Background(), "ping", map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Less(t, time.Since(start), time.Second, "fails without polling")

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConnection, kind)
}

func TestCallTimeout(t *testing.T) {
	root := testRoot(t)
	require.NoError(t, ipc.NewDir(root).Ensure()) // channel exists but nobody answers

	const timeout = 150 * time.Millisecond
	const interval = 20 * time.Millisecond
	client := NewClient(ClientConfig{Dir: root, Timeout: timeout, PollInterval: interval, ReadGrace: -1})

	start := time.Now()
	_, err := client.Call(context.Background(), "ping", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.GreaterOrEqual(t, elapsed, timeout)
	// one poll interval of slack, plus scheduling noise
	assert.Less(t, elapsed, timeout+interval+200*time.Millisecond)
}

func TestStaleResponseAfterTimeout(t *testing.T) {
	root := testRoot(t)
	release := make(chan struct{})
	mux := testMux()
	mux.Register("slow", func(ctx context.Context, params json.RawMessage) (any, error) {
		<-release
		return "late", nil
	})
	startServer(t, root, mux)
	dir := ipc.NewDir(root)

	t.Run("removed by the next call", func(t *testing.T) {
		_, err := newTestClient(t, root, 100*time.Millisecond).Call(context.Background(), "slow", nil)
		require.True(t, errors.Is(err, ErrTimeout))

		release <- struct{}{}
		require.Eventually(t, func() bool { return dir.Has(dir.ResponsePath()) }, 2*time.Second, 5*time.Millisecond)

		result, err := newTestClient(t, root, 2*time.Second).Call(context.Background(), "ping", nil)
		require.NoError(t, err)
		assert.Equal(t, `"pong"`, string(result))
		assert.Empty(t, dir.Present())
	})

	t.Run("dropped when it arrives mid-call", func(t *testing.T) {
		_, err := newTestClient(t, root, 100*time.Millisecond).Call(context.Background(), "slow", nil)
		require.True(t, errors.Is(err, ErrTimeout))

		// the handler is still busy: the next request is written behind it
		// and the stale response shows up while we poll
		go func() {
			time.Sleep(50 * time.Millisecond)
			release <- struct{}{}
		}()
		result, err := newTestClient(t, root, 2*time.Second).Call(context.Background(), "ping", nil)
		require.NoError(t, err)
		assert.Equal(t, `"pong"`, string(result))
	})
}

func TestCallContext(t *testing.T) {
	root := testRoot(t)
	require.NoError(t, ipc.NewDir(root).Ensure())
	client := newTestClient(t, root, 5*time.Second)

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(30*time.Millisecond, cancel)
		_, err := client.Call(ctx, "ping", nil)
		assert.True(t, errors.Is(err, ErrCommunication))
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err := client.Call(ctx, "ping", nil)
		assert.True(t, errors.Is(err, ErrTimeout))
	})
}

func TestCallRejectsBadInput(t *testing.T) {
	root := testRoot(t)
	startServer(t, root, testMux())
	client := newTestClient(t, root, time.Second)

	_, err := client.Call(context.Background(), "", nil)
	assert.True(t, errors.Is(err, ErrCommunication))

	_, err = client.Call(context.Background(), "echo", map[string]any{"bad": make(chan int)})
	assert.True(t, errors.Is(err, ErrCommunication))
	assert.ErrorContains(t, err, "failed to encode params")
}

func TestConcurrentCallersAreSerialized(t *testing.T) {
	root := testRoot(t)
	var active, maxActive atomic.Int32
	startServer(t, root, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		return req.Params, nil
	}))

	shared := newTestClient(t, root, 5*time.Second)
	other := newTestClient(t, root, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		client := shared
		if i%2 == 1 {
			client = other
		}
		wg.Add(1)
		go func(i int, client *Client) {
			defer wg.Done()
			result, err := client.Call(context.Background(), "echo", map[string]any{"i": i})
			if assert.NoError(t, err) {
				assert.JSONEq(t, fmt.Sprintf(`{"i":%d}`, i), string(result))
			}
		}(i, client)
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestCallWaitingForAnotherCallerHonorsDeadline(t *testing.T) {
	for _, shared := range []bool{true, false} {
		t.Run(fmt.Sprintf("shared client %v", shared), func(t *testing.T) {
			root := testRoot(t)
			entered := make(chan struct{})
			release := make(chan struct{})
			var pings atomic.Int32
			mux := NewMux()
			mux.Register("slow", func(ctx context.Context, params json.RawMessage) (any, error) {
				close(entered)
				<-release
				return "done", nil
			})
			mux.Register("ping", func(ctx context.Context, params json.RawMessage) (any, error) {
				pings.Add(1)
				return "pong", nil
			})
			startServer(t, root, mux)

			first := newTestClient(t, root, 5*time.Second)
			second := first
			if !shared {
				second = newTestClient(t, root, 5*time.Second)
			}

			slowDone := make(chan error, 1)
			go func() {
				_, err := first.Call(context.Background(), "slow", nil)
				slowDone <- err
			}()
			<-entered

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			start := time.Now()
			_, err := second.Call(ctx, "ping", nil)
			elapsed := time.Since(start)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTimeout))
			assert.Less(t, elapsed, 400*time.Millisecond, "returns at the caller's deadline")

			close(release)
			require.NoError(t, <-slowDone)
			time.Sleep(5 * testServerPoll)
			assert.Zero(t, pings.Load(), "the expired request is never sent")
		})
	}
}

func TestCallExpiredContextSendsNothing(t *testing.T) {
	root := testRoot(t)
	var calls atomic.Int32
	startServer(t, root, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		calls.Add(1)
		return nil, nil
	}))
	client := newTestClient(t, root, 2*time.Second)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := client.Call(ctx, "ping", nil)
	assert.True(t, errors.Is(err, ErrTimeout))

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	_, err = client.Call(canceled, "ping", nil)
	assert.True(t, errors.Is(err, ErrCommunication))

	time.Sleep(5 * testServerPoll)
	assert.Zero(t, calls.Load())
	assert.NoFileExists(t, ipc.NewDir(root).RequestPath())
}

func TestServerKeepsPollingAfterStartContextEnds(t *testing.T) {
	root := testRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	var handlerCtxErr atomic.Value
	server := NewServer(ServerConfig{Dir: root, PollInterval: testServerPoll}, HandlerFunc(
		func(hctx context.Context, req *ipc.Request) (any, error) {
			handlerCtxErr.Store(fmt.Sprint(hctx.Err()))
			return "pong", nil
		}))
	require.NoError(t, server.Start(ctx))
	t.Cleanup(func() { server.Stop() })

	cancel()
	time.Sleep(5 * testServerPoll)
	assert.True(t, server.IsRunning())

	result, err := newTestClient(t, root, 2*time.Second).Call(context.Background(), "ping", nil)
	require.NoError(t, err, "still answering after the start context ended")
	assert.Equal(t, `"pong"`, string(result))
	assert.Equal(t, context.Canceled.Error(), handlerCtxErr.Load(), "handlers see the canceled context")

	require.NoError(t, server.Stop())
	assert.False(t, server.IsRunning())
	assert.Empty(t, ipc.NewDir(root).Present())
}

func TestServerLifecycle(t *testing.T) {
	root := testRoot(t)
	dir := ipc.NewDir(root)
	require.NoError(t, dir.Ensure())
	for _, path := range []string{dir.RequestPath(), dir.ResponsePath(), dir.LockPath()} {
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	}

	server := NewServer(ServerConfig{Dir: root, PollInterval: testServerPoll}, testMux())
	assert.False(t, server.IsRunning())

	require.NoError(t, server.Start(context.Background()))
	assert.True(t, server.IsRunning())
	assert.Empty(t, dir.Present(), "start clears files from a previous run")
	assert.ErrorIs(t, server.Start(context.Background()), ErrAlreadyRunning)

	_, err := newTestClient(t, root, 2*time.Second).Call(context.Background(), "ping", nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dir.ResponsePath(), []byte("{}"), 0o644))
	require.NoError(t, server.Stop())
	assert.False(t, server.IsRunning())
	assert.Empty(t, dir.Present(), "stop leaves the directory clean")
	assert.True(t, dir.Exists())
	require.NoError(t, server.Stop(), "stop is idempotent")

	// restartable
	require.NoError(t, server.Start(context.Background()))
	_, err = newTestClient(t, root, 2*time.Second).Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	require.NoError(t, server.Stop())
}

func TestServerCreatesMissingDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "nested", "bridge")
	startServer(t, root, testMux())
	assert.True(t, ipc.NewDir(root).Exists())
}

// manualServer starts a server whose ticks are driven by the test.
func manualServer(t *testing.T, handler Handler, journal *memJournal) (*Server, ipc.Dir) {
	t.Helper()
	root := testRoot(t)
	server := startServer(t, root, handler, func(cfg *ServerConfig) {
		cfg.ManualTick = true
		if journal != nil {
			cfg.Journal = journal
		}
	})
	return server, ipc.NewDir(root)
}

func writeRequest(t *testing.T, dir ipc.Dir, req *ipc.Request) {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dir.RequestPath(), data, 0o644))
}

func readResponse(t *testing.T, dir ipc.Dir) *ipc.Response {
	t.Helper()
	data, err := os.ReadFile(dir.ResponsePath())
	require.NoError(t, err)
	var resp ipc.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return &resp
}

func TestPollDefersWhileLocked(t *testing.T) {
	var calls atomic.Int32
	server, dir := manualServer(t, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		calls.Add(1)
		return "pong", nil
	}), nil)

	require.NoError(t, os.WriteFile(dir.LockPath(), []byte("lock"), 0o644))
	writeRequest(t, dir, &ipc.Request{ID: "r1", Method: "ping", Params: json.RawMessage(`{}`)})

	server.Poll()
	assert.FileExists(t, dir.RequestPath(), "no read while the lock marker exists")
	assert.NoFileExists(t, dir.ResponsePath())
	assert.Zero(t, calls.Load())

	require.NoError(t, os.Remove(dir.LockPath()))
	server.Poll()
	assert.NoFileExists(t, dir.RequestPath())
	assert.Equal(t, int32(1), calls.Load())

	resp := readResponse(t, dir)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, `"pong"`, string(resp.Result))
}

func TestPollConsumesOnce(t *testing.T) {
	var (
		calls  atomic.Int32
		server *Server
		dir    ipc.Dir
	)
	server, dir = manualServer(t, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		calls.Add(1)
		// the request file is already gone while the handler runs
		assert.NoFileExists(t, dir.RequestPath())
		return nil, errors.New("boom")
	}), nil)

	writeRequest(t, dir, &ipc.Request{ID: "r1", Method: "explode", Params: json.RawMessage(`{}`)})
	for i := 0; i < 5; i++ {
		server.Poll()
	}
	assert.Equal(t, int32(1), calls.Load())

	resp := readResponse(t, dir)
	assert.Equal(t, "r1", resp.ID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ipc.CodeInternalError, resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)
	assert.Nil(t, resp.Result)
}

func TestPollIsNoopWhenStopped(t *testing.T) {
	var calls atomic.Int32
	server, dir := manualServer(t, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		calls.Add(1)
		return "pong", nil
	}), nil)
	require.NoError(t, server.Stop())

	require.NoError(t, dir.Ensure())
	writeRequest(t, dir, &ipc.Request{ID: "r1", Method: "ping"})
	server.Poll()
	assert.FileExists(t, dir.RequestPath())
	assert.Zero(t, calls.Load())
}

func TestPollDropsMalformedRequest(t *testing.T) {
	journal := &memJournal{}
	server, dir := manualServer(t, testMux(), journal)

	require.NoError(t, os.WriteFile(dir.RequestPath(), []byte(`{"id": "r1", "method":`), 0o644))
	server.Poll()
	assert.NoFileExists(t, dir.RequestPath(), "claimed before parsing")
	assert.NoFileExists(t, dir.ResponsePath(), "no response without an id")

	records := journal.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, types.OutcomeDropped, records[0].Outcome)
}

func TestPollUnserializableResult(t *testing.T) {
	journal := &memJournal{}
	server, dir := manualServer(t, HandlerFunc(func(ctx context.Context, req *ipc.Request) (any, error) {
		return map[string]any{"ch": make(chan int)}, nil
	}), journal)

	writeRequest(t, dir, &ipc.Request{ID: "r1", Method: "weird", Params: json.RawMessage(`{}`)})
	server.Poll()
	assert.NoFileExists(t, dir.ResponsePath())

	records := journal.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, types.OutcomeLost, records[0].Outcome)
	assert.Equal(t, "r1", records[0].RequestID)
}

func TestServerJournalsCalls(t *testing.T) {
	journal := &memJournal{}
	root := testRoot(t)
	startServer(t, root, testMux(), func(cfg *ServerConfig) { cfg.Journal = journal })
	client := newTestClient(t, root, 2*time.Second)

	_, err := client.Call(context.Background(), "ping", map[string]any{"x": 1})
	require.NoError(t, err)
	_, err = client.Call(context.Background(), "explode", nil)
	require.Error(t, err)

	// the record is written after the response, so it may trail the call
	require.Eventually(t, func() bool { return len(journal.snapshot()) == 2 }, time.Second, time.Millisecond)
	records := journal.snapshot()

	assert.Equal(t, "ping", records[0].Method)
	assert.Equal(t, types.OutcomeOK, records[0].Outcome)
	assert.JSONEq(t, `{"x":1}`, string(records[0].Params))
	assert.Equal(t, `"pong"`, string(records[0].Result))
	assert.NotEmpty(t, records[0].RequestID)

	assert.Equal(t, "explode", records[1].Method)
	assert.Equal(t, types.OutcomeError, records[1].Outcome)
	assert.Equal(t, ipc.CodeInternalError, records[1].ErrorCode)
	assert.Equal(t, "boom", records[1].ErrorMessage)
}

// countingResponder reports how many TryReceive calls overlap.
type countingResponder struct {
	active, max atomic.Int32
}

func (r *countingResponder) Ensure() error            { return nil }
func (r *countingResponder) Reset() error             { return nil }
func (r *countingResponder) Send(*ipc.Response) error { return nil }

func (r *countingResponder) TryReceive() (*ipc.Request, bool, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.max.Load()
		if n <= m || r.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return nil, false, nil
}

func TestTicksNeverOverlap(t *testing.T) {
	transport := &countingResponder{}
	server := startServer(t, testRoot(t), testMux(), func(cfg *ServerConfig) {
		cfg.PollInterval = time.Millisecond
		cfg.Transport = transport
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				server.Poll()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), transport.max.Load())
}

// scriptedRequester replays canned responses, stamping the id of the
// request most recently sent onto entries marked "$id".
type scriptedRequester struct {
	mu        sync.Mutex
	sent      *ipc.Request
	responses []*ipc.Response
	discards  int
}

func (r *scriptedRequester) Available() bool { return true }

func (r *scriptedRequester) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discards++
	return nil
}

func (r *scriptedRequester) Send(req *ipc.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = req
	return nil
}

func (r *scriptedRequester) TryReceive() (*ipc.Response, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return nil, false, nil
	}
	resp := *r.responses[0]
	r.responses = r.responses[1:]
	if resp.ID == "$id" {
		resp.ID = r.sent.ID
	}
	return &resp, true, nil
}

func scriptedClient(t *testing.T, transport ipc.Requester) *Client {
	t.Helper()
	return NewClient(ClientConfig{
		Dir:          t.TempDir(),
		Timeout:      time.Second,
		PollInterval: time.Millisecond,
		Logger:       zaptest.NewLogger(t),
		Transport:    transport,
	})
}

func TestCallDropsMismatchedID(t *testing.T) {
	transport := &scriptedRequester{responses: []*ipc.Response{
		{ID: "someone-else", Result: json.RawMessage(`"stale"`)},
		{ID: "$id", Result: json.RawMessage(`"fresh"`)},
	}}
	result, err := scriptedClient(t, transport).Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, `"fresh"`, string(result))
	assert.Equal(t, 1, transport.discards, "leftover responses are discarded before sending")
}

func TestCallAcceptsEmptyID(t *testing.T) {
	transport := &scriptedRequester{responses: []*ipc.Response{
		{Result: json.RawMessage(`"legacy"`)},
	}}
	result, err := scriptedClient(t, transport).Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, `"legacy"`, string(result))
}

func TestCallEmptyResultIsNull(t *testing.T) {
	transport := &scriptedRequester{responses: []*ipc.Response{{ID: "$id"}}}
	result, err := scriptedClient(t, transport).Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(result))
}

func TestCallUsesFreshIDs(t *testing.T) {
	transport := &scriptedRequester{}
	client := scriptedClient(t, transport)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		transport.responses = []*ipc.Response{{ID: "$id", Result: json.RawMessage(`1`)}}
		_, err := client.Call(context.Background(), "ping", nil)
		require.NoError(t, err)
		assert.False(t, seen[transport.sent.ID])
		seen[transport.sent.ID] = true
	}
}
