package format

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// FormatJSON pretty-prints raw JSON, highlighting it when colors are on.
// Invalid JSON is returned as-is.
func FormatJSON(raw []byte, opts Options) string {
	if len(raw) == 0 {
		return ""
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	text := pretty.String()

	if opts.MaxLines > 0 {
		text = TruncateLines(text, opts.MaxLines)
	}
	if !opts.UseColors {
		return text
	}

	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, text, "json", "terminal256", "monokai"); err != nil {
		return text
	}
	return strings.TrimRight(highlighted.String(), "\n")
}

// FormatJSONPreview renders raw JSON on a single line, truncated to maxLen runes.
func FormatJSONPreview(raw []byte, maxLen int) string {
	if len(raw) == 0 {
		return ""
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		preview := strings.ReplaceAll(string(raw), "\n", " ")
		return TruncateText(preview, maxLen)
	}
	return TruncateText(compact.String(), maxLen)
}
