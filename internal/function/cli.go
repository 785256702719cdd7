package function

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/noah-isme/volume-discount/internal/config"
	"github.com/noah-isme/volume-discount/internal/obs"
)

// Serve runs fn once with the input read from stdin. It writes the encoded
// result to stdout and the run's diagnostics to stderr.
func (rn Runner) Serve(ctx context.Context, fn Function, stdin io.Reader, stdout, stderr io.Writer) error {
	inv, err := rn.Invoke(ctx, fn, stdin)
	if inv.Logs != "" {
		_, _ = io.WriteString(stderr, inv.Logs)
	}
	if err != nil {
		return err
	}
	if err := json.NewEncoder(stdout).Encode(inv.Output); err != nil {
		return fmt.Errorf("encode function output: %w", err)
	}
	return nil
}

// Execute is the body of a function binary. It loads the function settings,
// serves one run and returns the process exit code: 0 on success, 1 on any
// configuration or harness error.
func Execute(ctx context.Context, fn Function, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.LoadFunction()
	if err != nil {
		logger := obs.NewLogger(stderr, "json", "info")
		logger.Error().Err(err).Str("function", fn.Handle()).Msg("load function config")
		return 1
	}
	logger := obs.NewLogger(stderr, cfg.LogFormat, cfg.LogLevel).With().Str("component", "function").Logger()

	runner := Runner{Logger: &logger, MaxInputBytes: cfg.FunctionInputMaxBytes}
	if err := runner.Serve(ctx, fn, stdin, stdout, stderr); err != nil {
		logger.Error().Err(err).Str("function", fn.Handle()).Msg("function run failed")
		return 1
	}
	return 0
}
