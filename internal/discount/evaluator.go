package discount

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// FunctionHandle identifies the volume discount function.
	FunctionHandle = "volume-discount"
	// MinQuantity is the smallest line quantity that earns the discount.
	MinQuantity = 2
	// NoTargetsMessage is logged when no cart line qualifies.
	NoTargetsMessage = "No cart lines qualify for volume discount."

	rateLiteral = "10.0"
)

// Rate returns the flat percentage applied to every qualifying variant.
func Rate() decimal.Decimal {
	return decimal.RequireFromString(rateLiteral)
}

// NoDiscount is the empty decision returned when nothing qualifies.
func NoDiscount() FunctionResult {
	return FunctionResult{
		Discounts:                   []Discount{},
		DiscountApplicationStrategy: StrategyFirst,
	}
}

// Evaluator computes the volume discount for a cart.
type Evaluator struct {
	Logger *zerolog.Logger
}

// Evaluate runs the evaluator without diagnostics.
func Evaluate(cart Cart) FunctionResult {
	return Evaluator{}.Evaluate(cart)
}

// Evaluate returns a single percentage discount covering every product variant
// line bought at least MinQuantity times.
func (e Evaluator) Evaluate(cart Cart) FunctionResult {
	logger := e.logger()

	targets := make([]Target, 0, len(cart.Lines))
	for i, line := range cart.Lines {
		if line.Quantity < MinQuantity {
			continue
		}
		switch m := line.Merchandise.(type) {
		case ProductVariant:
			targets = append(targets, Target{
				ProductVariant: &ProductVariantTarget{ID: m.ID},
			})
		case CustomProduct:
			// not targetable
		default:
			logger.Debug().Int("line", i).Msg("skipping line without merchandise")
		}
	}

	if len(targets) == 0 {
		logger.Info().Msg(NoTargetsMessage)
		return NoDiscount()
	}

	return FunctionResult{
		Discounts: []Discount{{
			Targets: targets,
			Value:   Value{Percentage: &Percentage{Value: Rate()}},
		}},
		DiscountApplicationStrategy: StrategyFirst,
	}
}

func (e Evaluator) logger() *zerolog.Logger {
	if e.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return e.Logger
}
