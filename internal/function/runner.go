package function

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/volume-discount/internal/obs"
)

// DefaultMaxInputBytes bounds input documents when the runner has no explicit limit.
const DefaultMaxInputBytes int64 = 64 << 10

// Invocation records the outcome of a single function run.
type Invocation struct {
	RunID    string
	Handle   string
	Output   any
	Logs     string
	Duration time.Duration
}

// Runner executes functions the way the host platform does: one isolated
// invocation per input document with its own diagnostic log.
type Runner struct {
	Logger        *zerolog.Logger
	MaxInputBytes int64
}

// Invoke reads the input document from r and runs fn against it.
func (rn Runner) Invoke(ctx context.Context, fn Function, r io.Reader) (Invocation, error) {
	inv := Invocation{RunID: uuid.NewString(), Handle: fn.Handle()}

	input, err := rn.readInput(r)
	if err != nil {
		rn.record(inv, "error", err)
		return inv, err
	}

	ctx, span := otel.Tracer("function").Start(ctx, "function.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("function.handle", inv.Handle),
		attribute.String("function.run_id", inv.RunID),
		attribute.Int("function.input_bytes", len(input)),
	)

	var logs bytes.Buffer
	runLogger := zerolog.New(zerolog.ConsoleWriter{
		Out:          &logs,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	})

	start := time.Now()
	output, err := fn.Run(ctx, input, &runLogger)
	inv.Duration = time.Since(start)
	inv.Logs = logs.String()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rn.record(inv, "error", err)
		return inv, err
	}
	inv.Output = output

	outcome := "ok"
	if o, ok := output.(Outcomer); ok {
		outcome = o.Outcome()
	}
	span.SetAttributes(attribute.String("function.outcome", outcome))
	rn.record(inv, outcome, nil)
	return inv, nil
}

func (rn Runner) readInput(r io.Reader) ([]byte, error) {
	limit := rn.MaxInputBytes
	if limit <= 0 {
		limit = DefaultMaxInputBytes
	}
	buf, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeInput, err)
	}
	if int64(len(buf)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrInputTooLarge, limit)
	}
	return buf, nil
}

func (rn Runner) record(inv Invocation, outcome string, err error) {
	if obs.FunctionRunsTotal != nil {
		obs.FunctionRunsTotal.WithLabelValues(inv.Handle, outcome).Inc()
	}
	if obs.FunctionRunDuration != nil && err == nil {
		obs.FunctionRunDuration.WithLabelValues(inv.Handle).Observe(obs.DurationMillis(inv.Duration))
	}
	if rn.Logger == nil {
		return
	}
	evt := rn.Logger.Info()
	if err != nil {
		evt = rn.Logger.Warn().Err(err)
		if !errors.Is(err, ErrDecodeInput) && !errors.Is(err, ErrInvalidInput) && !errors.Is(err, ErrInputTooLarge) {
			evt = rn.Logger.Error().Err(err)
		}
	}
	evt.Str("run_id", inv.RunID).
		Str("function", inv.Handle).
		Str("outcome", outcome).
		Int64("duration_us", inv.Duration.Microseconds()).
		Msg("function_run")
}
