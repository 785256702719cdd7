package function

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var (
	// ErrDecodeInput is returned when the input document is not valid JSON for the function.
	ErrDecodeInput = errors.New("decode function input")
	// ErrInvalidInput is returned when the decoded input fails validation.
	ErrInvalidInput = errors.New("invalid function input")
	// ErrInputTooLarge is returned when the input document exceeds the configured limit.
	ErrInputTooLarge = errors.New("function input too large")
	// ErrUnknownFunction is returned when no function is registered under a handle.
	ErrUnknownFunction = errors.New("unknown function")
)

var defaultValidate = validator.New()

// Function is a cart function invoked once per evaluation.
type Function interface {
	Handle() string
	Run(ctx context.Context, input []byte, logger *zerolog.Logger) (any, error)
}

// Outcomer is implemented by results that can label a run for metrics.
type Outcomer interface {
	Outcome() string
}

// Typed adapts a pure evaluator into a Function.
type Typed[In, Out any] struct {
	Name     string
	Eval     func(logger *zerolog.Logger, in In) Out
	Validate *validator.Validate
}

// Handle returns the function handle.
func (t Typed[In, Out]) Handle() string { return t.Name }

// Run decodes and validates the input document before evaluating it.
func (t Typed[In, Out]) Run(_ context.Context, input []byte, logger *zerolog.Logger) (any, error) {
	in, err := t.decode(input)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return t.Eval(logger, in), nil
}

func (t Typed[In, Out]) decode(input []byte) (In, error) {
	var in In
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return in, fmt.Errorf("%w: empty document", ErrDecodeInput)
	}
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrDecodeInput, err)
	}
	validate := t.Validate
	if validate == nil {
		validate = defaultValidate
	}
	if err := validate.Struct(in); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// non-struct inputs carry no tags
			return in, nil
		}
		return in, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}
	return in, nil
}

func describeValidation(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Registry resolves functions by handle.
type Registry map[string]Function

// NewRegistry indexes the provided functions by handle.
func NewRegistry(fns ...Function) Registry {
	reg := make(Registry, len(fns))
	for _, fn := range fns {
		reg[fn.Handle()] = fn
	}
	return reg
}

// Lookup returns the function registered under handle.
func (r Registry) Lookup(handle string) (Function, error) {
	fn, ok := r[strings.TrimSpace(handle)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, handle)
	}
	return fn, nil
}

// Handles returns the registered handles in sorted order.
func (r Registry) Handles() []string {
	out := make([]string, 0, len(r))
	for handle := range r {
		out = append(out, handle)
	}
	sort.Strings(out)
	return out
}

// RunWithInput runs fn against a literal input document and returns its typed result.
func RunWithInput[Out any](fn Function, input string) (Out, error) {
	var zero Out
	result, err := fn.Run(context.Background(), []byte(input), nil)
	if err != nil {
		return zero, err
	}
	out, ok := result.(Out)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T", result)
	}
	return out, nil
}
