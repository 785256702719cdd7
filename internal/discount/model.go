package discount

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownMerchandise is returned when a cart line carries an unsupported __typename.
	ErrUnknownMerchandise = errors.New("unknown merchandise type")
	// ErrMissingVariantID is returned when a product variant line has no id.
	ErrMissingVariantID = errors.New("product variant missing id")
)

// Input is the function input document.
type Input struct {
	Cart Cart `json:"cart"`
}

// Cart is the ordered snapshot of lines supplied by the platform.
type Cart struct {
	Lines []CartLine `json:"lines" validate:"dive"`
}

// CartLine is a single cart entry.
type CartLine struct {
	Quantity    int         `json:"quantity" validate:"gte=0"`
	Merchandise Merchandise `json:"merchandise"`
}

// Merchandise is the closed set of things a cart line can reference.
type Merchandise interface {
	merchandise()
}

// ProductVariant is a catalog SKU addressable by its variant id.
type ProductVariant struct {
	ID string `json:"id"`
}

// CustomProduct is an ad hoc line item with no catalog identity.
type CustomProduct struct{}

func (ProductVariant) merchandise() {}
func (CustomProduct) merchandise()  {}

const (
	typeProductVariant = "ProductVariant"
	typeCustomProduct  = "CustomProduct"
)

type merchandisePayload struct {
	Typename string `json:"__typename"`
	ID       string `json:"id,omitempty"`
}

// UnmarshalJSON resolves the merchandise union by its __typename discriminator.
func (l *CartLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		Quantity    int                 `json:"quantity"`
		Merchandise *merchandisePayload `json:"merchandise"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Quantity = raw.Quantity
	if raw.Merchandise == nil {
		return fmt.Errorf("%w: merchandise is required", ErrUnknownMerchandise)
	}
	switch raw.Merchandise.Typename {
	case typeProductVariant:
		if raw.Merchandise.ID == "" {
			return ErrMissingVariantID
		}
		l.Merchandise = ProductVariant{ID: raw.Merchandise.ID}
	case typeCustomProduct:
		l.Merchandise = CustomProduct{}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMerchandise, raw.Merchandise.Typename)
	}
	return nil
}

// MarshalJSON writes the merchandise back with its __typename.
func (l CartLine) MarshalJSON() ([]byte, error) {
	payload := merchandisePayload{}
	switch m := l.Merchandise.(type) {
	case ProductVariant:
		payload = merchandisePayload{Typename: typeProductVariant, ID: m.ID}
	case CustomProduct:
		payload.Typename = typeCustomProduct
	default:
		return nil, ErrUnknownMerchandise
	}
	return json.Marshal(struct {
		Quantity    int                `json:"quantity"`
		Merchandise merchandisePayload `json:"merchandise"`
	}{l.Quantity, payload})
}

// DiscountApplicationStrategy tells the platform how to combine discounts.
type DiscountApplicationStrategy string

const (
	StrategyFirst   DiscountApplicationStrategy = "FIRST"
	StrategyMaximum DiscountApplicationStrategy = "MAXIMUM"
	StrategyAll     DiscountApplicationStrategy = "ALL"
)

// FunctionResult is the function output document.
type FunctionResult struct {
	Discounts                   []Discount                  `json:"discounts"`
	DiscountApplicationStrategy DiscountApplicationStrategy `json:"discountApplicationStrategy"`
}

// Outcome labels the result for run metrics.
func (r FunctionResult) Outcome() string {
	if len(r.Discounts) == 0 {
		return "no_discount"
	}
	return "discounted"
}

// Discount applies a single value to a non-empty list of targets.
type Discount struct {
	Message *string  `json:"message,omitempty"`
	Targets []Target `json:"targets"`
	Value   Value    `json:"value"`
}

// Target references a discountable unit.
type Target struct {
	ProductVariant *ProductVariantTarget `json:"productVariant,omitempty"`
}

// ProductVariantTarget targets a variant. A nil Quantity covers every matching unit.
type ProductVariantTarget struct {
	ID       string `json:"id"`
	Quantity *int   `json:"quantity,omitempty"`
}

// Value holds exactly one of its members.
type Value struct {
	FixedAmount *FixedAmount `json:"fixedAmount,omitempty"`
	Percentage  *Percentage  `json:"percentage,omitempty"`
}

// FixedAmount is a currency amount off.
type FixedAmount struct {
	Amount            decimal.Decimal `json:"amount"`
	AppliesToEachItem *bool           `json:"appliesToEachItem,omitempty"`
}

// Percentage is a percentage off, e.g. 10.0 for ten percent.
type Percentage struct {
	Value decimal.Decimal
}

// String renders the value with at least one fractional digit.
func (p Percentage) String() string {
	places := -p.Value.Exponent()
	if places < 1 {
		places = 1
	}
	return p.Value.StringFixed(places)
}

// MarshalJSON encodes the percentage as {"value":"10.0"}.
func (p Percentage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value string `json:"value"`
	}{p.String()})
}

// UnmarshalJSON accepts the value as a decimal string or number.
func (p *Percentage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value decimal.Decimal `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Value = raw.Value
	return nil
}
