package discount

import (
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/volume-discount/internal/function"
)

// NewFunction exposes the evaluator to the run harness.
func NewFunction(validate *validator.Validate) function.Function {
	return function.Typed[Input, FunctionResult]{
		Name:     FunctionHandle,
		Validate: validate,
		Eval: func(logger *zerolog.Logger, in Input) FunctionResult {
			return Evaluator{Logger: logger}.Evaluate(in.Cart)
		},
	}
}
