package cmd

import (
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/berrythewa/filebridge/internal/common"
	"github.com/berrythewa/filebridge/internal/config"
)

// SetupLogger builds the command logger from the config, honoring the
// --verbose and --quiet flags.
func SetupLogger(cfg *config.Config) (*zap.Logger, error) {
	switch {
	case verbose:
		devCfg := zap.NewDevelopmentConfig()
		devCfg.OutputPaths = []string{"stderr"}
		return devCfg.Build()
	case quiet:
		quietCfg := *cfg
		quietCfg.Log.Level = "warn"
		return common.NewLogger(&quietCfg)
	default:
		return common.NewLogger(cfg)
	}
}

// colorsFor reports whether output written to w should carry ANSI colors.
func colorsFor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
