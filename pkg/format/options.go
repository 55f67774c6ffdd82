package format

import "github.com/berrythewa/filebridge/internal/types"

// Options controls formatting behavior
type Options struct {
	UseColors    bool
	UseIcons     bool
	MaxWidth     int  // Max content width (0 = no limit)
	MaxLines     int  // Max content lines (0 = no limit)
	ShowMetadata bool // Show request id, timing, sizes
	Compact      bool // Use compact single-line format
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		UseColors:    true,
		UseIcons:     true,
		MaxWidth:     80,
		MaxLines:     10,
		ShowMetadata: true,
		Compact:      false,
	}
}

// CompactOptions returns options for compact single-line display
func CompactOptions() Options {
	opts := DefaultOptions()
	opts.Compact = true
	opts.ShowMetadata = false
	opts.MaxLines = 1
	return opts
}

// PlainOptions returns options for output that is not a terminal
func PlainOptions() Options {
	opts := DefaultOptions()
	opts.UseColors = false
	opts.UseIcons = false
	return opts
}

// OutcomeIcons maps call outcomes to Unicode icons
var OutcomeIcons = map[types.Outcome]string{
	types.OutcomeOK:      "✔",
	types.OutcomeError:   "✖",
	types.OutcomeDropped: "⊘",
	types.OutcomeLost:    "⚠",
}

// OutcomeColors maps call outcomes to colors
var OutcomeColors = map[types.Outcome]string{
	types.OutcomeOK:      Green,
	types.OutcomeError:   Red,
	types.OutcomeDropped: Yellow,
	types.OutcomeLost:    Magenta,
}
