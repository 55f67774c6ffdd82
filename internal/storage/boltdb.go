package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/types"
	"github.com/berrythewa/filebridge/pkg/compression"
	"github.com/berrythewa/filebridge/pkg/utils"
)

const (
	callsBucket      = "calls"
	defaultKeepItems = 10000 // retention applied by Record when none is configured
)

// ErrJournalBusy is returned by NewBoltStorage when another process, usually
// a running server, holds the journal open.
var ErrJournalBusy = errors.New("journal is in use by another process")

// ErrRecordNotFound is returned by GetRecord for an unknown request id.
var ErrRecordNotFound = errors.New("call record not found")

// Journal is the subset of BoltStorage the bridge server writes to.
type Journal interface {
	Record(record *types.CallRecord) error
}

// BoltStorage implements the call journal using BoltDB. Keys are ULIDs so
// a cursor walks entries in the order they were recorded.
type BoltStorage struct {
	db        *bbolt.DB
	logger    *zap.Logger
	keepItems int
}

// StorageConfig holds configuration for BoltStorage initialization
type StorageConfig struct {
	DBPath    string
	KeepItems int // Record prunes down to this many entries, 0 means defaultKeepItems
	Logger    *zap.Logger
}

// storedRecord is the on-disk form, CBOR encoded. Large payloads are gzipped.
type storedRecord struct {
	types.CallRecord
	ParamsGz []byte `cbor:"params_gz,omitempty"`
	ResultGz []byte `cbor:"result_gz,omitempty"`
}

// NewBoltStorage opens (creating if needed) the journal at config.DBPath
func NewBoltStorage(config StorageConfig) (*BoltStorage, error) {
	if config.DBPath == "" {
		return nil, errors.New("journal path is required")
	}
	keep := config.KeepItems
	if keep <= 0 {
		keep = defaultKeepItems
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bbolt.Open(config.DBPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrJournalBusy, config.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(callsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Debug("Journal opened",
		zap.String("db_path", config.DBPath),
		zap.Int("keep_items", keep))

	return &BoltStorage{db: db, logger: logger, keepItems: keep}, nil
}

// Record appends a call record and trims the journal to its retention limit.
// A zero StartedAt is set to now; Key is always assigned here.
func (s *BoltStorage) Record(record *types.CallRecord) error {
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	record.Key = utils.NewSortableID(record.StartedAt).String()

	stored := storedRecord{CallRecord: *record}
	if data, compressed, err := compression.Compress(record.Params); err == nil && compressed {
		stored.ParamsGz, stored.Params = data, nil
	}
	if data, compressed, err := compression.Compress(record.Result); err == nil && compressed {
		stored.ResultGz, stored.Result = data, nil
	}

	encoded, err := marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(callsBucket))
		if err := b.Put([]byte(record.Key), encoded); err != nil {
			return fmt.Errorf("failed to store call record: %w", err)
		}
		return s.trim(b, s.keepItems)
	})
}

// trim deletes the oldest entries until at most keep remain.
func (s *BoltStorage) trim(b *bbolt.Bucket, keep int) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	excess := len(keys) - keep
	for i := 0; i < excess; i++ {
		if err := b.Delete(keys[i]); err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
	}
	return nil
}

// GetHistory returns call records matching options, oldest first unless
// options.Reverse is set. Limit applies after filtering.
func (s *BoltStorage) GetHistory(options types.HistoryOptions) ([]*types.CallRecord, error) {
	var records []*types.CallRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(callsBucket)).Cursor()

		first, next := c.First, c.Next
		if options.Reverse {
			first, next = c.Last, c.Prev
		}
		for k, v := first(); k != nil; k, v = next() {
			record, err := s.decode(v)
			if err != nil {
				s.logger.Warn("Failed to decode call record", zap.Error(err), zap.ByteString("key", k))
				continue
			}
			if !matches(record, options) {
				continue
			}
			records = append(records, record)
			if options.Limit > 0 && len(records) >= options.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return records, nil
}

// GetRecord looks up a single record by request id.
func (s *BoltStorage) GetRecord(requestID string) (*types.CallRecord, error) {
	var found *types.CallRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(callsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			record, err := s.decode(v)
			if err != nil {
				continue
			}
			if record.RequestID == requestID {
				found = record
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, requestID)
	}
	return found, nil
}

// Stats summarizes the journal.
func (s *BoltStorage) Stats() (*types.JournalStats, error) {
	stats := &types.JournalStats{
		ByOutcome: make(map[types.Outcome]int),
		ByMethod:  make(map[string]int),
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(callsBucket)).ForEach(func(k, v []byte) error {
			stats.TotalSize += int64(len(k) + len(v))
			var record storedRecord
			if err := unmarshal(v, &record); err != nil {
				return nil
			}
			stats.TotalEntries++
			stats.ByOutcome[record.Outcome]++
			if record.Method != "" {
				stats.ByMethod[record.Method]++
			}
			if stats.Oldest.IsZero() || record.StartedAt.Before(stats.Oldest) {
				stats.Oldest = record.StartedAt
			}
			if record.StartedAt.After(stats.Newest) {
				stats.Newest = record.StartedAt
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute journal stats: %w", err)
	}
	return stats, nil
}

// Prune keeps only the newest keep records. keep <= 0 empties the journal.
func (s *BoltStorage) Prune(keep int) error {
	if keep < 0 {
		keep = 0
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.trim(tx.Bucket([]byte(callsBucket)), keep)
	})
}

// Close releases the database.
func (s *BoltStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStorage) decode(v []byte) (*types.CallRecord, error) {
	var stored storedRecord
	if err := unmarshal(v, &stored); err != nil {
		return nil, err
	}
	if len(stored.ParamsGz) > 0 {
		params, err := compression.Decompress(stored.ParamsGz)
		if err != nil {
			return nil, err
		}
		stored.Params = params
	}
	if len(stored.ResultGz) > 0 {
		result, err := compression.Decompress(stored.ResultGz)
		if err != nil {
			return nil, err
		}
		stored.Result = result
	}
	record := stored.CallRecord
	return &record, nil
}

func matches(record *types.CallRecord, options types.HistoryOptions) bool {
	if options.Method != "" && record.Method != options.Method {
		return false
	}
	if options.Outcome != "" && record.Outcome != options.Outcome {
		return false
	}
	if !options.Since.IsZero() && record.StartedAt.Before(options.Since) {
		return false
	}
	return true
}
