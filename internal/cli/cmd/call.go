package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/bridge"
	"github.com/berrythewa/filebridge/pkg/format"
)

// Exit codes reported by a failed call, one per error kind.
const (
	ExitConnection    = 2
	ExitRemote        = 3
	ExitTimeout       = 4
	ExitCommunication = 5
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// callFailure is the --json rendering of a failed call.
type callFailure struct {
	Kind    string `json:"kind"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

func newCallCmd() *cobra.Command {
	var (
		paramsArg  string
		paramsFile string
		timeout    time.Duration
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "call <method> [params]",
		Short: "Call a method on the host process",
		Long: `Call a method on the host process and print its result.

Params are a JSON object. Comments and trailing commas are accepted.

Examples:
  filebridge call ping
  filebridge call echo '{"text": "hello"}'
  filebridge call sleep --params '{"ms": 500}' --timeout 2s
  filebridge call echo --params-file params.jsonc
  echo '{"a": 1}' | filebridge call echo --params-file -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := args[0]

			source := paramsArg
			if len(args) == 2 {
				if source != "" {
					return fmt.Errorf("params given both as argument and --params")
				}
				source = args[1]
			}
			var input []byte
			switch {
			case paramsFile != "" && source != "":
				return fmt.Errorf("--params-file cannot be combined with inline params")
			case paramsFile == "-":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read params from stdin: %w", err)
				}
				input = data
			case paramsFile != "":
				data, err := os.ReadFile(paramsFile)
				if err != nil {
					return fmt.Errorf("failed to read params file: %w", err)
				}
				input = data
			default:
				input = []byte(source)
			}

			params, err := parseParams(input)
			if err != nil {
				return err
			}

			client := newClient(timeout)
			logger := GetZapLogger()
			logger.Debug("Calling host",
				zap.String("method", method),
				zap.String("dir", cfg.Channel.Dir),
				zap.Duration("timeout", client.Timeout()))

			result, err := client.Call(cmd.Context(), method, params)
			if err != nil {
				return reportCallError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if raw || useJSON {
				var compact bytes.Buffer
				if err := json.Compact(&compact, result); err != nil {
					compact.Reset()
					compact.Write(result)
				}
				fmt.Fprintln(out, compact.String())
				return nil
			}
			opts := format.DefaultOptions()
			opts.UseColors = colorsFor(out)
			fmt.Fprintln(out, format.New(opts).FormatResult(result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&paramsArg, "params", "p", "", "params as a JSON object")
	cmd.Flags().StringVarP(&paramsFile, "params-file", "f", "", "read params from a file, - for stdin")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "call timeout (default from config)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the result as compact JSON")

	return cmd
}

// newClient builds a bridge client from the loaded config. A timeout of
// zero keeps the configured one.
func newClient(timeout time.Duration) *bridge.Client {
	if timeout <= 0 {
		timeout = cfg.Client.Timeout.Std()
	}
	grace := cfg.Client.ReadGrace.Std()
	if grace == 0 {
		grace = -1 // zero in the config means no grace, not the default
	}
	return bridge.NewClient(bridge.ClientConfig{
		Dir:          cfg.Channel.Dir,
		Timeout:      timeout,
		PollInterval: cfg.Client.PollInterval.Std(),
		ReadGrace:    grace,
		Logger:       GetZapLogger().Named("client"),
	})
}

// parseParams turns JSONC input into call params. Empty input means no params.
func parseParams(input []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(input), &params); err != nil {
		return nil, fmt.Errorf("params must be a JSON object: %w", err)
	}
	return params, nil
}

// reportCallError prints a failed call and returns the matching ExitError.
func reportCallError(cmd *cobra.Command, err error) error {
	kind, ok := bridge.KindOf(err)
	if !ok {
		return err
	}

	code := 0
	var bridgeErr *bridge.Error
	if errors.As(err, &bridgeErr) {
		code = bridgeErr.Code
	}

	if useJSON {
		failure := callFailure{Kind: kind.String(), Code: code, Message: err.Error()}
		if bridgeErr != nil && bridgeErr.Message != "" {
			failure.Message = bridgeErr.Message
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		if encErr := enc.Encode(map[string]callFailure{"error": failure}); encErr != nil {
			return encErr
		}
	} else {
		errOut := cmd.ErrOrStderr()
		opts := format.DefaultOptions()
		opts.UseColors = colorsFor(errOut)
		fmt.Fprintln(errOut, format.New(opts).FormatError(kind.String(), err))
	}

	return &ExitError{Code: exitCodeFor(err), Err: err}
}

// exitCodeFor maps a call error to the exit code for its kind.
func exitCodeFor(err error) int {
	kind, ok := bridge.KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case bridge.KindConnection:
		return ExitConnection
	case bridge.KindRemote:
		return ExitRemote
	case bridge.KindTimeout:
		return ExitTimeout
	default:
		return ExitCommunication
	}
}
