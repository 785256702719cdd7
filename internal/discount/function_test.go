package discount_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/volume-discount/internal/discount"
	"github.com/noah-isme/volume-discount/internal/function"
)

func TestResultContainsNoDiscountsWithoutCart(t *testing.T) {
	result, err := function.RunWithInput[discount.FunctionResult](discount.NewFunction(nil), `
		{
			"discountNode": {
				"metafield": null
			}
		}
	`)
	require.NoError(t, err)
	require.Equal(t, discount.NoDiscount(), result)
}

func TestRunWithInputDiscountsQualifyingVariants(t *testing.T) {
	result, err := function.RunWithInput[discount.FunctionResult](discount.NewFunction(nil), `{
		"cart": {
			"lines": [
				{"quantity": 5, "merchandise": {"__typename": "ProductVariant", "id": "gid://shopify/ProductVariant/1"}},
				{"quantity": 1, "merchandise": {"__typename": "ProductVariant", "id": "gid://shopify/ProductVariant/2"}},
				{"quantity": 4, "merchandise": {"__typename": "CustomProduct"}},
				{"quantity": 2, "merchandise": {"__typename": "ProductVariant", "id": "gid://shopify/ProductVariant/3"}}
			]
		}
	}`)
	require.NoError(t, err)

	out, err := json.Marshal(result)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"discounts": [{
			"targets": [
				{"productVariant": {"id": "gid://shopify/ProductVariant/1"}},
				{"productVariant": {"id": "gid://shopify/ProductVariant/3"}}
			],
			"value": {"percentage": {"value": "10.0"}}
		}],
		"discountApplicationStrategy": "FIRST"
	}`, string(out))
}

func TestNoDiscountEncodesEmptyArray(t *testing.T) {
	out, err := json.Marshal(discount.NoDiscount())
	require.NoError(t, err)
	require.JSONEq(t, `{"discounts":[],"discountApplicationStrategy":"FIRST"}`, string(out))
}

func TestRunWithInputRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]struct {
		input string
		want  error
	}{
		"not json":          {input: `{"cart":`, want: function.ErrDecodeInput},
		"unknown typename":  {input: `{"cart":{"lines":[{"quantity":2,"merchandise":{"__typename":"GiftCard"}}]}}`, want: discount.ErrUnknownMerchandise},
		"missing variant":   {input: `{"cart":{"lines":[{"quantity":2,"merchandise":{"__typename":"ProductVariant"}}]}}`, want: discount.ErrMissingVariantID},
		"missing merch":     {input: `{"cart":{"lines":[{"quantity":2}]}}`, want: discount.ErrUnknownMerchandise},
		"negative quantity": {input: `{"cart":{"lines":[{"quantity":-1,"merchandise":{"__typename":"CustomProduct"}}]}}`, want: function.ErrInvalidInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := function.RunWithInput[discount.FunctionResult](discount.NewFunction(nil), tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCartLineRoundTripsTypename(t *testing.T) {
	lines := []discount.CartLine{
		{Quantity: 3, Merchandise: discount.ProductVariant{ID: "gid://shopify/ProductVariant/7"}},
		{Quantity: 1, Merchandise: discount.CustomProduct{}},
	}
	out, err := json.Marshal(lines)
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"quantity":3,"merchandise":{"__typename":"ProductVariant","id":"gid://shopify/ProductVariant/7"}},
		{"quantity":1,"merchandise":{"__typename":"CustomProduct"}}
	]`, string(out))
}

func TestPercentageFormatting(t *testing.T) {
	var value discount.Value
	require.NoError(t, json.Unmarshal([]byte(`{"percentage":{"value":"12.5"}}`), &value))
	require.Equal(t, "12.5", value.Percentage.String())

	require.NoError(t, json.Unmarshal([]byte(`{"percentage":{"value":15}}`), &value))
	require.Equal(t, "15.0", value.Percentage.String())
}
