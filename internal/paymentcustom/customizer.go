package paymentcustom

import (
	"encoding/json"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/volume-discount/internal/function"
)

const (
	// FunctionHandle identifies the payment customization function.
	FunctionHandle = "payment-customization"
	// TotalTooLowMessage is logged when the cart does not reach the configured total.
	TotalTooLowMessage = "Cart total is not high enough, no need to hide the payment method."
)

// Input is the function input document.
type Input struct {
	Cart                 Cart                  `json:"cart"`
	PaymentMethods       []PaymentMethod       `json:"paymentMethods" validate:"dive"`
	PaymentCustomization *PaymentCustomization `json:"paymentCustomization"`
}

// Cart carries the totals the customization inspects.
type Cart struct {
	Cost CartCost `json:"cost"`
}

// CartCost holds the cart total.
type CartCost struct {
	TotalAmount Money `json:"totalAmount"`
}

// Money is a platform MoneyV2 amount.
type Money struct {
	Amount decimal.NullDecimal `json:"amount"`
}

// PaymentMethod is a checkout payment option.
type PaymentMethod struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// PaymentCustomization is the merchant-owned customization node.
type PaymentCustomization struct {
	Metafield *Metafield `json:"metafield"`
}

// Metafield stores the customization's JSON configuration.
type Metafield struct {
	Value string `json:"value"`
}

// Configuration is parsed from the customization metafield.
type Configuration struct {
	PaymentMethodName string          `json:"paymentMethodName"`
	CartTotal         decimal.Decimal `json:"cartTotal"`
}

// FunctionResult is the function output document.
type FunctionResult struct {
	Operations []Operation `json:"operations"`
}

// Outcome labels the result for run metrics.
func (r FunctionResult) Outcome() string {
	if len(r.Operations) == 0 {
		return "no_changes"
	}
	return "hidden"
}

// Operation is a single change to the payment method list.
type Operation struct {
	Hide *HideOperation `json:"hide,omitempty"`
}

// HideOperation hides one payment method from checkout.
type HideOperation struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

// NoChanges leaves the payment methods untouched.
func NoChanges() FunctionResult {
	return FunctionResult{Operations: []Operation{}}
}

// Customizer hides a configured payment method on large carts.
type Customizer struct {
	Logger *zerolog.Logger
}

// Customize returns a hide operation for the first payment method whose name
// contains the configured name once the cart total reaches the configured threshold.
func (c Customizer) Customize(in Input) FunctionResult {
	logger := c.logger()

	cfg, err := configuration(in)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid payment customization configuration")
		return NoChanges()
	}
	if cfg.PaymentMethodName == "" || cfg.CartTotal.IsZero() {
		return NoChanges()
	}

	total := decimal.Zero
	if in.Cart.Cost.TotalAmount.Amount.Valid {
		total = in.Cart.Cost.TotalAmount.Amount.Decimal
	}
	if total.LessThan(cfg.CartTotal) {
		logger.Info().Msg(TotalTooLowMessage)
		return NoChanges()
	}

	for _, method := range in.PaymentMethods {
		if strings.Contains(method.Name, cfg.PaymentMethodName) {
			return FunctionResult{Operations: []Operation{{
				Hide: &HideOperation{PaymentMethodID: method.ID},
			}}}
		}
	}
	return NoChanges()
}

func configuration(in Input) (Configuration, error) {
	var cfg Configuration
	raw := "{}"
	if in.PaymentCustomization != nil && in.PaymentCustomization.Metafield != nil {
		if v := strings.TrimSpace(in.PaymentCustomization.Metafield.Value); v != "" {
			raw = v
		}
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

func (c Customizer) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}

// NewFunction exposes the customizer to the run harness.
func NewFunction(validate *validator.Validate) function.Function {
	return function.Typed[Input, FunctionResult]{
		Name:     FunctionHandle,
		Validate: validate,
		Eval: func(logger *zerolog.Logger, in Input) FunctionResult {
			return Customizer{Logger: logger}.Customize(in)
		},
	}
}
