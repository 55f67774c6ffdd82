package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRequestID returns a random UUID used to correlate a request with its response.
func NewRequestID() string {
	return uuid.NewString()
}

// NewSortableID returns a ULID for t. IDs generated in the same process
// sort in creation order, even within one millisecond.
func NewSortableID(t time.Time) ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy)
}
