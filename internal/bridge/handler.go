package bridge

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/berrythewa/filebridge/internal/ipc"
)

// Handler answers requests inside the host process. A returned error is
// sent back as an error response; return an *ipc.RPCError to choose the code.
type Handler interface {
	Handle(ctx context.Context, req *ipc.Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *ipc.Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req *ipc.Request) (any, error) {
	return f(ctx, req)
}

// MethodFunc handles the params of a single method.
type MethodFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Mux dispatches requests to the MethodFunc registered for their method.
type Mux struct {
	mu      sync.RWMutex
	methods map[string]MethodFunc
}

// NewMux constructs an empty Mux.
func NewMux() *Mux {
	return &Mux{methods: make(map[string]MethodFunc)}
}

// Register installs fn for method, replacing any previous registration.
func (m *Mux) Register(method string, fn MethodFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods[method] = fn
}

// Methods returns the registered method names in sorted order.
func (m *Mux) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.methods))
	for name := range m.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Mux) Handle(ctx context.Context, req *ipc.Request) (any, error) {
	m.mu.RLock()
	fn := m.methods[req.Method]
	m.mu.RUnlock()
	if fn == nil {
		return nil, ipc.Errorf(ipc.CodeMethodNotFound, "unknown method: %s", req.Method)
	}
	return fn(ctx, req.Params)
}
