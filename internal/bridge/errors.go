package bridge

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call as seen by the caller.
type Kind int

const (
	// KindCommunication covers local I/O and decoding faults during an exchange.
	KindCommunication Kind = iota
	// KindConnection means the channel directory is missing: the host is not running.
	KindConnection
	// KindRemote means the handler reported a failure.
	KindRemote
	// KindTimeout means no response arrived in time. The remote method may still have run.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindRemote:
		return "remote"
	case KindTimeout:
		return "timeout"
	default:
		return "communication"
	}
}

// Error is the single failure type returned by Client calls.
type Error struct {
	Kind    Kind
	Code    int    // remote error code, KindRemote only
	Message string
	Err     error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrCommunication = &Error{Kind: KindCommunication}
	ErrConnection    = &Error{Kind: KindConnection}
	ErrRemote        = &Error{Kind: KindRemote}
	ErrTimeout       = &Error{Kind: KindTimeout}
)

// ErrAlreadyRunning is returned by Server.Start on a running server.
var ErrAlreadyRunning = errors.New("bridge server already running")

// errCallLockUnavailable marks a call lock file that cannot be created,
// typically because the channel's parent directory is read-only.
var errCallLockUnavailable = errors.New("call lock unavailable")

func (e *Error) Error() string {
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	case KindCommunication:
		if e.Err != nil {
			return "communication error: " + e.Err.Error()
		}
	}
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Message == "" {
		return e.Kind.String() + " error"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == 0 && t.Message == "" && t.Err == nil
}

// KindOf returns the kind of a call error, or false if err did not come
// from a Client.
func KindOf(err error) (Kind, bool) {
	var bridgeErr *Error
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Kind, true
	}
	return 0, false
}

func communicationError(err error) *Error {
	return &Error{Kind: KindCommunication, Err: err}
}
