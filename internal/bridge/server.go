package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/ipc"
	"github.com/berrythewa/filebridge/internal/storage"
	"github.com/berrythewa/filebridge/internal/types"
)

// DefaultServerPollInterval is how often the server looks for a request.
const DefaultServerPollInterval = 100 * time.Millisecond

// ServerConfig holds configuration for a Server
type ServerConfig struct {
	Dir          string // channel root, empty means ipc.DefaultRoot()
	PollInterval time.Duration
	Logger       *zap.Logger

	// ManualTick leaves polling to the caller: Start does not launch a
	// ticker and the host drives Poll from its own event loop.
	ManualTick bool

	// Journal, when set, receives one record per claimed request.
	Journal storage.Journal

	// Transport replaces the file channel, mainly for tests.
	Transport ipc.Responder
}

// Server watches the channel directory inside the host process and answers
// requests with its Handler. Ticks never overlap: a slow handler delays the
// next poll instead of running concurrently with it.
type Server struct {
	handler   Handler
	transport ipc.Responder
	dir       ipc.Dir
	interval  time.Duration
	manual    bool
	journal   storage.Journal
	logger    *zap.Logger

	mu      sync.Mutex // guards running, ctx, cancel, stop, done
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	stop    chan struct{} // closed by Stop only
	done    chan struct{}

	tickMu sync.Mutex // held for the duration of one tick
}

// NewServer creates a new Server
func NewServer(cfg ServerConfig, handler Handler) *Server {
	dir := ipc.NewDir(cfg.Dir)

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultServerPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = ipc.NewFileResponder(dir)
	}

	return &Server{
		handler:   handler,
		transport: transport,
		dir:       dir,
		interval:  interval,
		manual:    cfg.ManualTick,
		journal:   cfg.Journal,
		logger:    logger,
	}
}

// Dir returns the channel directory the server answers on.
func (s *Server) Dir() ipc.Dir { return s.dir }

// Start creates the channel directory, clears stale files and begins
// polling. It returns immediately. Handlers receive a context derived from
// ctx that is canceled by Stop. Canceling ctx does not stop polling; only
// Stop does.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	if err := s.transport.Ensure(); err != nil {
		return err
	}
	if err := s.transport.Reset(); err != nil {
		return fmt.Errorf("failed to clear stale channel files: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	if !s.manual {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.loop(s.stop, s.done)
	}

	s.logger.Info("File bridge server started",
		zap.String("dir", s.dir.Root()),
		zap.Duration("poll_interval", s.interval),
		zap.Bool("manual_tick", s.manual))
	return nil
}

// Stop halts polling, waits for an in-progress tick and removes channel
// files. Stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, stop, done := s.cancel, s.stop, s.done
	s.cancel, s.stop, s.done = nil, nil, nil
	s.mu.Unlock()

	cancel()
	if stop != nil {
		close(stop)
		<-done
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if err := s.transport.Reset(); err != nil {
		return fmt.Errorf("failed to clean channel files: %w", err)
	}
	s.logger.Info("File bridge server stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) loop(stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll runs one tick: if a complete request is waiting it is claimed,
// handled and answered. It does nothing while the server is stopped or the
// client still holds the lock marker.
func (s *Server) Poll() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	running, ctx := s.running, s.ctx
	s.mu.Unlock()
	if !running {
		return
	}

	started := time.Now()
	req, ok, err := s.transport.TryReceive()
	if err != nil {
		s.logger.Error("Error processing request", zap.Error(err))
		if errors.Is(err, ipc.ErrMalformedRequest) {
			s.record(&types.CallRecord{
				Outcome:      types.OutcomeDropped,
				ErrorMessage: err.Error(),
				StartedAt:    started,
			})
		}
		return
	}
	if !ok {
		return
	}

	s.dispatch(ctx, req, started)
}

func (s *Server) dispatch(ctx context.Context, req *ipc.Request, started time.Time) {
	logger := s.logger.With(zap.String("request_id", req.ID), zap.String("method", req.Method))
	logger.Debug("Request received")

	record := &types.CallRecord{
		RequestID: req.ID,
		Method:    req.Method,
		Params:    req.Params,
		StartedAt: started,
	}
	resp := &ipc.Response{ID: req.ID}

	result, handlerErr := s.invoke(ctx, req)
	if handlerErr != nil {
		resp.Error = toRPCError(handlerErr)
		record.Outcome = types.OutcomeError
		record.ErrorCode = resp.Error.Code
		record.ErrorMessage = resp.Error.Message
		logger.Warn("Handler failed", zap.Int("code", resp.Error.Code), zap.Error(handlerErr))
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			logger.Error("Error processing request: result is not serializable", zap.Error(err))
			record.Outcome = types.OutcomeLost
			record.ErrorMessage = err.Error()
			s.finish(record)
			return
		}
		resp.Result = raw
		record.Outcome = types.OutcomeOK
		record.Result = raw
	}

	if err := s.transport.Send(resp); err != nil {
		logger.Error("Error processing request", zap.Error(err))
		record.Outcome = types.OutcomeLost
		record.ErrorMessage = err.Error()
	}
	s.finish(record)
	logger.Debug("Request handled", zap.Duration("duration", record.Duration), zap.String("outcome", string(record.Outcome)))
}

// invoke calls the handler, turning a panic into a handler failure.
func (s *Server) invoke(ctx context.Context, req *ipc.Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	if s.handler == nil {
		return nil, ipc.Errorf(ipc.CodeMethodNotFound, "no handler installed")
	}
	return s.handler.Handle(ctx, req)
}

func (s *Server) finish(record *types.CallRecord) {
	record.Duration = time.Since(record.StartedAt)
	s.record(record)
}

func (s *Server) record(record *types.CallRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(record); err != nil {
		s.logger.Warn("Failed to journal call", zap.Error(err))
	}
}

// toRPCError maps a handler failure to the error object sent to the client.
func toRPCError(err error) *ipc.RPCError {
	var rpcErr *ipc.RPCError
	if errors.As(err, &rpcErr) {
		code := rpcErr.Code
		if code == 0 {
			code = ipc.CodeInternalError
		}
		return &ipc.RPCError{Code: code, Message: rpcErr.Message}
	}
	return &ipc.RPCError{Code: ipc.CodeInternalError, Message: err.Error()}
}
