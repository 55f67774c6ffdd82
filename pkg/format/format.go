package format

import (
	"fmt"
	"strings"

	"github.com/berrythewa/filebridge/internal/types"
)

// Formatter renders call results and journal entries for the terminal
type Formatter struct {
	options Options
}

// New creates a new formatter with the given options
func New(opts Options) *Formatter {
	return &Formatter{
		options: opts,
	}
}

// NewDefault creates a new formatter with default options
func NewDefault() *Formatter {
	return New(DefaultOptions())
}

// FormatResult renders the result of a successful call.
func (f *Formatter) FormatResult(raw []byte) string {
	opts := f.options
	opts.MaxLines = 0 // a call result is never cut short
	return FormatJSON(raw, opts)
}

// FormatError renders a failed call as "kind: message".
func (f *Formatter) FormatError(kind string, err error) string {
	label := kind + " error"
	if f.options.UseIcons {
		label = OutcomeIcons[types.OutcomeError] + " " + label
	}
	return ColorizeIf(label+":", Red, f.options.UseColors) + " " + err.Error()
}

// FormatRecord formats a single journal entry
func (f *Formatter) FormatRecord(record *types.CallRecord) string {
	if record == nil {
		return ColorizeIf("No record", Gray, f.options.UseColors)
	}

	header := f.formatHeader(record)
	if f.options.Compact {
		preview := f.formatPreview(record, 50)
		if preview == "" {
			return header
		}
		return header + " " + DimIf(preview, f.options.UseColors)
	}

	parts := []string{header}
	if f.options.ShowMetadata {
		parts = append(parts, f.formatMetadata(record))
	}
	if params := FormatJSON(record.Params, f.options); params != "" && string(record.Params) != "{}" {
		parts = append(parts, CreateBox("Params", params, f.options))
	}
	if record.Outcome == types.OutcomeOK {
		if result := FormatJSON(record.Result, f.options); result != "" {
			parts = append(parts, CreateBox("Result", result, f.options))
		}
	} else if record.ErrorMessage != "" {
		msg := record.ErrorMessage
		if record.ErrorCode != 0 {
			msg = fmt.Sprintf("[%d] %s", record.ErrorCode, msg)
		}
		parts = append(parts, CreateBox("Error", TruncateText(msg, f.options.MaxWidth), f.options))
	}
	return strings.Join(parts, "\n")
}

// FormatRecordList formats multiple journal entries
func (f *Formatter) FormatRecordList(records []*types.CallRecord) string {
	if len(records) == 0 {
		return ColorizeIf("No calls recorded", Gray, f.options.UseColors)
	}

	parts := []string{f.formatListHeader(len(records)), ""}
	for i, record := range records {
		index := DimIf(fmt.Sprintf("[%d]", i+1), f.options.UseColors)
		if f.options.Compact {
			parts = append(parts, index+" "+f.FormatRecord(record))
			continue
		}
		parts = append(parts, index, f.FormatRecord(record))
		if i < len(records)-1 {
			parts = append(parts, CreateSeparator(f.options))
		}
	}
	return strings.Join(parts, "\n")
}

// FormatStats formats journal statistics using the stats formatter
func (f *Formatter) FormatStats(stats *types.JournalStats) string {
	return FormatStats(stats, f.options)
}

// formatHeader shows outcome, method and when the call started
func (f *Formatter) formatHeader(record *types.CallRecord) string {
	var parts []string

	if f.options.UseIcons {
		if icon, exists := OutcomeIcons[record.Outcome]; exists {
			parts = append(parts, icon)
		}
	}

	outcome := string(record.Outcome)
	if color, exists := OutcomeColors[record.Outcome]; exists {
		outcome = ColorizeIf(outcome, color, f.options.UseColors)
	}
	parts = append(parts, outcome)

	method := record.Method
	if method == "" {
		method = "(unknown method)"
	}
	parts = append(parts, BoldIf(method, f.options.UseColors))
	parts = append(parts, DimIf(record.StartedAt.Format("2006-01-02 15:04:05"), f.options.UseColors))

	return strings.Join(parts, " ")
}

func (f *Formatter) formatMetadata(record *types.CallRecord) string {
	var parts []string
	if record.RequestID != "" {
		parts = append(parts, "ID: "+record.RequestID)
	}
	parts = append(parts, "Took: "+FormatDuration(record.Duration))
	parts = append(parts, "Started: "+FormatRelativeTime(record.StartedAt))
	if size := len(record.Params) + len(record.Result); size > 0 {
		parts = append(parts, "Size: "+FormatSize(int64(size)))
	}
	return DimIf(strings.Join(parts, " • "), f.options.UseColors)
}

func (f *Formatter) formatPreview(record *types.CallRecord, maxLen int) string {
	if record.Outcome == types.OutcomeOK {
		return FormatJSONPreview(record.Result, maxLen)
	}
	return TruncateText(record.ErrorMessage, maxLen)
}

func (f *Formatter) formatListHeader(count int) string {
	title := fmt.Sprintf("Call history (%d entries)", count)
	return ColorizeIf(title, BrightBlue, f.options.UseColors)
}

// Package-level convenience functions

// FormatRecord formats a single journal entry with given options
func FormatRecord(record *types.CallRecord, opts Options) string {
	return New(opts).FormatRecord(record)
}

// FormatRecordList formats multiple journal entries with given options
func FormatRecordList(records []*types.CallRecord, opts Options) string {
	return New(opts).FormatRecordList(records)
}
