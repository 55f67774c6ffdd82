package ipc

import (
	"encoding/json"
	"fmt"
)

// Error codes follow JSON-RPC numbering. The server reports every handler
// failure as CodeInternalError unless the handler returns an *RPCError.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is written by the client into request.json.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is written by the server into response.json. Exactly one of
// Result or Error is set.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object carried by a failed Response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Errorf builds an RPCError with a formatted message.
func Errorf(code int, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Example usage:
// req := &Request{ID: uuid.NewString(), Method: "ping", Params: json.RawMessage(`{}`)}
// resp := &Response{ID: req.ID, Result: json.RawMessage(`"pong"`)}
