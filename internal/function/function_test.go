package function_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/volume-discount/internal/function"
	"github.com/noah-isme/volume-discount/internal/obs"
)

type echoInput struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

type echoResult struct {
	Greeting string `json:"greeting"`
}

func (r echoResult) Outcome() string {
	if r.Greeting == "" {
		return "silent"
	}
	return "greeted"
}

func echoFunction() function.Function {
	return function.Typed[echoInput, echoResult]{
		Name: "echo",
		Eval: func(logger *zerolog.Logger, in echoInput) echoResult {
			if in.Count == 0 {
				logger.Info().Msg("nothing to greet")
				return echoResult{}
			}
			return echoResult{Greeting: strings.Repeat("hi ", in.Count) + in.Name}
		},
	}
}

func TestTypedDecodesAndValidates(t *testing.T) {
	out, err := function.RunWithInput[echoResult](echoFunction(), `{"name":"cart","count":2}`)
	require.NoError(t, err)
	require.Equal(t, "hi hi cart", out.Greeting)

	_, err = function.RunWithInput[echoResult](echoFunction(), `{"count":2}`)
	require.ErrorIs(t, err, function.ErrInvalidInput)
	require.Contains(t, err.Error(), "Name")

	_, err = function.RunWithInput[echoResult](echoFunction(), "   ")
	require.ErrorIs(t, err, function.ErrDecodeInput)

	_, err = function.RunWithInput[echoResult](echoFunction(), `[1,2]`)
	require.ErrorIs(t, err, function.ErrDecodeInput)
}

func TestRunWithInputRejectsWrongResultType(t *testing.T) {
	_, err := function.RunWithInput[string](echoFunction(), `{"name":"cart","count":1}`)
	require.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	reg := function.NewRegistry(echoFunction(), function.Typed[echoInput, echoResult]{Name: "alpha"})
	require.Equal(t, []string{"alpha", "echo"}, reg.Handles())

	fn, err := reg.Lookup(" echo ")
	require.NoError(t, err)
	require.Equal(t, "echo", fn.Handle())

	_, err = reg.Lookup("missing")
	require.ErrorIs(t, err, function.ErrUnknownFunction)
}

func TestRunnerInvokeCapturesLogsAndMetrics(t *testing.T) {
	obs.MustRegisterDomainMetrics("fn_test", prometheus.NewRegistry())

	var hostLogs bytes.Buffer
	host := zerolog.New(&hostLogs)
	runner := function.Runner{Logger: &host}

	inv, err := runner.Invoke(context.Background(), echoFunction(), strings.NewReader(`{"name":"cart","count":0}`))
	require.NoError(t, err)
	require.NotEmpty(t, inv.RunID)
	require.Equal(t, "echo", inv.Handle)
	require.Equal(t, echoResult{}, inv.Output)
	require.Contains(t, inv.Logs, "nothing to greet")
	require.Contains(t, hostLogs.String(), `"outcome":"silent"`)
	require.Contains(t, hostLogs.String(), inv.RunID)

	require.Equal(t, 1.0, testutil.ToFloat64(obs.FunctionRunsTotal.WithLabelValues("echo", "silent")))

	_, err = runner.Invoke(context.Background(), echoFunction(), strings.NewReader(`{"name":"cart","count":-1}`))
	require.ErrorIs(t, err, function.ErrInvalidInput)
	require.Equal(t, 1.0, testutil.ToFloat64(obs.FunctionRunsTotal.WithLabelValues("echo", "error")))
}

func TestRunnerInvokeRejectsOversizedInput(t *testing.T) {
	runner := function.Runner{MaxInputBytes: 8}
	_, err := runner.Invoke(context.Background(), echoFunction(), strings.NewReader(`{"name":"a long cart name"}`))
	require.ErrorIs(t, err, function.ErrInputTooLarge)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestRunnerInvokeReadFailure(t *testing.T) {
	_, err := function.Runner{}.Invoke(context.Background(), echoFunction(), failingReader{})
	require.ErrorIs(t, err, function.ErrDecodeInput)
}

func TestRunnerServeWritesStdoutAndStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := function.Runner{}.Serve(context.Background(), echoFunction(), strings.NewReader(`{"name":"cart","count":0}`), &stdout, &stderr)
	require.NoError(t, err)
	require.JSONEq(t, `{"greeting":""}`, stdout.String())
	require.Contains(t, stderr.String(), "nothing to greet")

	stdout.Reset()
	stderr.Reset()
	err = function.Runner{}.Serve(context.Background(), echoFunction(), strings.NewReader(`{"name":"cart","count":1}`), &stdout, &stderr)
	require.NoError(t, err)
	require.JSONEq(t, `{"greeting":"hi cart"}`, stdout.String())
	require.Empty(t, stderr.String())

	stdout.Reset()
	err = function.Runner{}.Serve(context.Background(), echoFunction(), strings.NewReader(`nope`), &stdout, &stderr)
	require.ErrorIs(t, err, function.ErrDecodeInput)
	require.Empty(t, stdout.String())
}

func TestExecuteIgnoresServerOnlySettings(t *testing.T) {
	t.Setenv("RATE_LIMIT_STORE", "redis")
	t.Setenv("REDIS_URL", "")
	t.Setenv("FUNCTION_INPUT_MAX_BYTES", "")

	var stdout, stderr bytes.Buffer
	code := function.Execute(context.Background(), echoFunction(), strings.NewReader(`{"name":"cart","count":1}`), &stdout, &stderr)
	require.Equal(t, 0, code)
	require.JSONEq(t, `{"greeting":"hi cart"}`, stdout.String())
}

func TestExecuteExitCodes(t *testing.T) {
	t.Setenv("FUNCTION_INPUT_MAX_BYTES", "0")
	var stdout, stderr bytes.Buffer
	code := function.Execute(context.Background(), echoFunction(), strings.NewReader(`{"name":"cart","count":1}`), &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "FUNCTION_INPUT_MAX_BYTES must be positive")

	t.Setenv("FUNCTION_INPUT_MAX_BYTES", "1024")
	stdout.Reset()
	stderr.Reset()
	code = function.Execute(context.Background(), echoFunction(), strings.NewReader(`nope`), &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "function run failed")
}
