package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/berrythewa/filebridge/internal/types"
)

// FormatStats formats journal statistics for display
func FormatStats(stats *types.JournalStats, opts Options) string {
	var parts []string

	parts = append(parts, ColorizeIf("Journal statistics", BrightBlue, opts.UseColors))
	parts = append(parts, "")

	if stats == nil || stats.TotalEntries == 0 {
		parts = append(parts, formatStatLine("Total entries", "0", opts))
		return strings.Join(parts, "\n")
	}

	parts = append(parts, formatStatLine("Total entries", fmt.Sprintf("%d", stats.TotalEntries), opts))
	parts = append(parts, formatStatLine("Total size", FormatSize(stats.TotalSize), opts))
	if !stats.Oldest.IsZero() {
		parts = append(parts, formatStatLine("Oldest entry", FormatRelativeTime(stats.Oldest), opts))
	}
	if !stats.Newest.IsZero() {
		parts = append(parts, formatStatLine("Newest entry", FormatRelativeTime(stats.Newest), opts))
	}

	if len(stats.ByOutcome) > 0 {
		parts = append(parts, "")
		parts = append(parts, formatSubHeader("Entries by outcome", opts))
		for _, outcome := range []types.Outcome{types.OutcomeOK, types.OutcomeError, types.OutcomeDropped, types.OutcomeLost} {
			count, ok := stats.ByOutcome[outcome]
			if !ok {
				continue
			}
			icon := ""
			if opts.UseIcons {
				icon = OutcomeIcons[outcome] + " "
			}
			label := ColorizeIf(icon+string(outcome), OutcomeColors[outcome], opts.UseColors)
			parts = append(parts, fmt.Sprintf("  %s: %d", label, count))
		}
	}

	if len(stats.ByMethod) > 0 {
		parts = append(parts, "")
		parts = append(parts, formatSubHeader("Entries by method", opts))
		methods := make([]string, 0, len(stats.ByMethod))
		for method := range stats.ByMethod {
			methods = append(methods, method)
		}
		// busiest first, then by name
		sort.Slice(methods, func(i, j int) bool {
			ci, cj := stats.ByMethod[methods[i]], stats.ByMethod[methods[j]]
			if ci != cj {
				return ci > cj
			}
			return methods[i] < methods[j]
		})
		for _, method := range methods {
			parts = append(parts, fmt.Sprintf("  %s: %d", method, stats.ByMethod[method]))
		}
	}

	return strings.Join(parts, "\n")
}

// formatStatLine formats a statistics line with label and value
func formatStatLine(label, value string, opts Options) string {
	if opts.UseColors {
		return fmt.Sprintf("  %s%s:%s %s", BrightCyan, label, Reset, value)
	}
	return fmt.Sprintf("  %s: %s", label, value)
}

// formatSubHeader formats a section subheader
func formatSubHeader(title string, opts Options) string {
	return ColorizeIf(title, BrightBlue, opts.UseColors)
}
