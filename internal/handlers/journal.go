package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/berrythewa/filebridge/internal/bridge"
	"github.com/berrythewa/filebridge/internal/ipc"
	"github.com/berrythewa/filebridge/internal/storage"
	"github.com/berrythewa/filebridge/internal/types"
)

// JournalReader is the read side of the call journal.
type JournalReader interface {
	GetHistory(options types.HistoryOptions) ([]*types.CallRecord, error)
	GetRecord(requestID string) (*types.CallRecord, error)
	Stats() (*types.JournalStats, error)
}

type getRecordParams struct {
	RequestID string `json:"request_id"`
}

// RegisterJournal exposes the journal over the bridge as journal.history,
// journal.get and journal.stats. The journal file is locked while a server
// holds it, so this is how other processes read it.
func RegisterJournal(mux *bridge.Mux, journal JournalReader) {
	mux.Register("journal.history", func(ctx context.Context, params json.RawMessage) (any, error) {
		var opts types.HistoryOptions
		if err := decode(params, &opts); err != nil {
			return nil, err
		}
		records, err := journal.GetHistory(opts)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []*types.CallRecord{}
		}
		return records, nil
	})

	mux.Register("journal.get", func(ctx context.Context, params json.RawMessage) (any, error) {
		var p getRecordParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		if p.RequestID == "" {
			return nil, ipc.Errorf(ipc.CodeInvalidParams, "request_id is required")
		}
		record, err := journal.GetRecord(p.RequestID)
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, ipc.Errorf(ipc.CodeInvalidParams, "%v", err)
		}
		return record, err
	})

	mux.Register("journal.stats", func(ctx context.Context, params json.RawMessage) (any, error) {
		return journal.Stats()
	})
}
