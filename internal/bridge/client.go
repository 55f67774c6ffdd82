package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/ipc"
	"github.com/berrythewa/filebridge/pkg/utils"
)

const (
	DefaultTimeout            = 30 * time.Second
	DefaultClientPollInterval = 50 * time.Millisecond
	DefaultReadGrace          = 10 * time.Millisecond
)

// ClientConfig holds configuration for a Client
type ClientConfig struct {
	Dir          string        // channel root, empty means ipc.DefaultRoot()
	Timeout      time.Duration // measured from the moment the request is published
	PollInterval time.Duration
	ReadGrace    time.Duration // negative disables the grace delay
	Logger       *zap.Logger

	// Transport replaces the file channel, mainly for tests.
	Transport ipc.Requester
}

// Client issues calls to a host process through the channel directory.
// Calls are strictly sequential: concurrent Call invocations wait for each
// other, and callers in other processes are serialized with a file lock.
type Client struct {
	dir       ipc.Dir
	transport ipc.Requester
	timeout   time.Duration
	interval  time.Duration
	logger    *zap.Logger
	newID     func() string

	// one slot; holding it means this Client owns the channel
	sem chan struct{}
}

// NewClient creates a new Client
func NewClient(cfg ClientConfig) *Client {
	dir := ipc.NewDir(cfg.Dir)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultClientPollInterval
	}
	grace := cfg.ReadGrace
	if grace == 0 {
		grace = DefaultReadGrace
	} else if grace < 0 {
		grace = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = ipc.NewFileRequester(dir, grace)
	}

	return &Client{
		dir:       dir,
		transport: transport,
		timeout:   timeout,
		interval:  interval,
		logger:    logger,
		newID:     utils.NewRequestID,
		sem:       make(chan struct{}, 1),
	}
}

// Timeout returns the per-call response deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Call sends method and params to the host and blocks until the result
// arrives, the host reports an error, or the timeout expires. The returned
// result is the raw JSON the handler produced.
//
// Every failure is an *Error; use errors.Is with ErrConnection, ErrRemote,
// ErrTimeout or ErrCommunication to tell them apart.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if method == "" {
		return nil, communicationError(errors.New("method is required"))
	}
	if !c.transport.Available() {
		return nil, &Error{
			Kind: KindConnection,
			Message: fmt.Sprintf("cannot connect to bridge at %s: make sure the host process is running with the bridge loaded",
				c.dir.Root()),
		}
	}

	if params == nil {
		params = map[string]any{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, communicationError(fmt.Errorf("failed to encode params: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return nil, c.contextError(ctx, err, "before sending")
	}
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, c.contextError(ctx, ctx.Err(), "waiting for another caller")
	}
	defer func() { <-c.sem }()

	release, err := acquireCallLock(ctx, c.dir.CallLockPath(), c.interval)
	if errors.Is(err, errCallLockUnavailable) {
		c.logger.Warn("Cross-process call lock unavailable, serializing in-process only",
			zap.String("path", c.dir.CallLockPath()), zap.Error(err))
		release, err = func() {}, nil
	}
	if err != nil {
		return nil, c.contextError(ctx, err, "waiting for another caller")
	}
	defer release()

	// the wait may have used up the caller's deadline
	if err := ctx.Err(); err != nil {
		return nil, c.contextError(ctx, err, "waiting for another caller")
	}

	req := &ipc.Request{ID: c.newID(), Method: method, Params: rawParams}
	logger := c.logger.With(zap.String("request_id", req.ID), zap.String("method", method))

	if err := c.transport.Discard(); err != nil {
		return nil, communicationError(err)
	}
	if err := c.transport.Send(req); err != nil {
		return nil, communicationError(err)
	}
	logger.Debug("Request sent")

	start := time.Now()
	resp, err := c.await(ctx, req.ID, logger)
	if err != nil {
		logger.Debug("Call failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, err
	}
	logger.Debug("Response received", zap.Duration("duration", time.Since(start)))

	if resp.Error != nil {
		return nil, &Error{Kind: KindRemote, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if len(resp.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return resp.Result, nil
}

// CallInto performs Call and decodes the result into out.
func (c *Client) CallInto(ctx context.Context, method string, params map[string]any, out any) error {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return communicationError(fmt.Errorf("failed to decode result: %w", err))
	}
	return nil
}

// await polls for the response to id. Responses carrying another non-empty
// id are leftovers from an abandoned call and are dropped.
func (c *Client) await(ctx context.Context, id string, logger *zap.Logger) (*ipc.Response, error) {
	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		resp, ok, err := c.transport.TryReceive()
		if err != nil {
			return nil, communicationError(err)
		}
		if ok {
			if resp.ID == "" || resp.ID == id {
				return resp, nil
			}
			logger.Warn("Dropping stale response", zap.String("stale_id", resp.ID))
		}

		select {
		case <-ctx.Done():
			return nil, c.contextError(ctx, ctx.Err(), "waiting for response")
		case <-deadline.C:
			return nil, &Error{Kind: KindTimeout, Message: fmt.Sprintf("request timed out after %s", c.timeout)}
		case <-ticker.C:
		}
	}
}

func (c *Client) contextError(ctx context.Context, err error, during string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timed out " + during, Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return communicationError(ctxErr)
	}
	return communicationError(err)
}
