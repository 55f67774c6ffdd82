// Package handlers provides the diagnostic methods served by the filebridge
// daemon. They exist to exercise a channel end to end; hosts embedding the
// bridge register their own methods on a bridge.Mux instead.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/berrythewa/filebridge/internal/bridge"
	"github.com/berrythewa/filebridge/internal/ipc"
)

// MaxSleep caps the sleep method so a stray call cannot wedge the server.
const MaxSleep = 5 * time.Minute

type sleepParams struct {
	MS int64 `json:"ms"`
}

type failParams struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// Register installs the diagnostic methods on mux.
func Register(mux *bridge.Mux) {
	mux.Register("ping", Ping)
	mux.Register("echo", Echo)
	mux.Register("sleep", Sleep)
	mux.Register("fail", Fail)
	mux.Register("methods", func(ctx context.Context, params json.RawMessage) (any, error) {
		return mux.Methods(), nil
	})
}

// NewMux returns a Mux with the diagnostic methods registered.
func NewMux() *bridge.Mux {
	mux := bridge.NewMux()
	Register(mux)
	return mux
}

func Ping(ctx context.Context, params json.RawMessage) (any, error) {
	return "pong", nil
}

// Echo returns its params unchanged.
func Echo(ctx context.Context, params json.RawMessage) (any, error) {
	if len(params) == 0 {
		return map[string]any{}, nil
	}
	return params, nil
}

// Sleep blocks for params.ms milliseconds, or until ctx is done.
func Sleep(ctx context.Context, params json.RawMessage) (any, error) {
	var p sleepParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.MS < 0 {
		return nil, ipc.Errorf(ipc.CodeInvalidParams, "ms must not be negative")
	}
	// compare in milliseconds; converting first can overflow
	if p.MS > MaxSleep.Milliseconds() {
		return nil, ipc.Errorf(ipc.CodeInvalidParams, "ms exceeds the %s limit", MaxSleep)
	}
	d := time.Duration(p.MS) * time.Millisecond

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return map[string]any{"slept_ms": p.MS}, nil
}

// Fail always fails with params.message. A non-zero params.code is passed
// through as the error code.
func Fail(ctx context.Context, params json.RawMessage) (any, error) {
	var p failParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Message == "" {
		p.Message = "requested failure"
	}
	if p.Code != 0 {
		return nil, &ipc.RPCError{Code: p.Code, Message: p.Message}
	}
	return nil, errors.New(p.Message)
}

func decode(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return ipc.Errorf(ipc.CodeInvalidParams, "invalid params: %v", err)
	}
	return nil
}
