package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/berrythewa/filebridge/pkg/utils"
)

// ErrMalformedRequest is returned by a Responder when a request file was
// claimed but could not be decoded. The file is already gone at that point.
var ErrMalformedRequest = errors.New("malformed request")

// Requester is the client end of a channel.
type Requester interface {
	// Available reports whether the other side has set up the channel.
	Available() bool
	// Discard drops any response left over from an earlier call.
	Discard() error
	// Send publishes a request.
	Send(req *Request) error
	// TryReceive returns the pending response, if any, consuming it.
	TryReceive() (*Response, bool, error)
}

// Responder is the host end of a channel.
type Responder interface {
	// Ensure creates the channel so requesters can find it.
	Ensure() error
	// Reset removes every pending message.
	Reset() error
	// TryReceive claims a fully written request, if any.
	TryReceive() (*Request, bool, error)
	// Send publishes the response to the request last received.
	Send(resp *Response) error
}

// FileRequester implements Requester on top of a channel Dir.
type FileRequester struct {
	dir Dir
	// ReadGrace is slept between first seeing response.json and reading it.
	// Peers that rename into place do not need it; peers that write in place do.
	ReadGrace time.Duration

	// published runs after request.json is in place, before the lock
	// marker is removed.
	published func()
}

// NewFileRequester returns a Requester for dir.
func NewFileRequester(dir Dir, readGrace time.Duration) *FileRequester {
	return &FileRequester{dir: dir, ReadGrace: readGrace}
}

func (r *FileRequester) Dir() Dir { return r.dir }

func (r *FileRequester) Available() bool {
	return r.dir.Exists()
}

func (r *FileRequester) Discard() error {
	return removeIfExists(r.dir.ResponsePath())
}

// Send writes the request while the lock marker exists, so a responder
// never reads request.json before it is complete.
func (r *FileRequester) Send(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	if err := os.WriteFile(r.dir.LockPath(), []byte("lock"), 0o644); err != nil {
		return fmt.Errorf("failed to create lock marker: %w", err)
	}
	if err := utils.WriteFileAtomic(r.dir.RequestPath(), data); err != nil {
		removeIfExists(r.dir.LockPath())
		return fmt.Errorf("failed to write request: %w", err)
	}
	if r.published != nil {
		r.published()
	}
	if err := os.Remove(r.dir.LockPath()); err != nil {
		return fmt.Errorf("failed to remove lock marker: %w", err)
	}
	return nil
}

func (r *FileRequester) TryReceive() (*Response, bool, error) {
	path := r.dir.ResponsePath()
	if !r.dir.Has(path) {
		return nil, false, nil
	}
	if r.ReadGrace > 0 {
		time.Sleep(r.ReadGrace)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return nil, false, fmt.Errorf("failed to remove response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, true, nil
}

// FileResponder implements Responder on top of a channel Dir.
type FileResponder struct {
	dir Dir
}

// NewFileResponder returns a Responder for dir.
func NewFileResponder(dir Dir) *FileResponder {
	return &FileResponder{dir: dir}
}

func (r *FileResponder) Dir() Dir { return r.dir }

func (r *FileResponder) Ensure() error { return r.dir.Ensure() }

func (r *FileResponder) Reset() error { return r.dir.Clean() }

// TryReceive reads request.json and deletes it before decoding, so the same
// request is never seen twice even when decoding or handling fails.
func (r *FileResponder) TryReceive() (*Request, bool, error) {
	path := r.dir.RequestPath()
	if !r.dir.Has(path) {
		return nil, false, nil
	}
	if r.dir.Has(r.dir.LockPath()) {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read request: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return nil, false, fmt.Errorf("failed to claim request: %w", err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return &req, true, nil
}

func (r *FileResponder) Send(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := utils.WriteFileAtomic(r.dir.ResponsePath(), data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
