package uom

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolver_BaseUnitIsIdentity(t *testing.T) {
	r := NewResolver(Precision{Places: 4})
	conversions := []Conversion{
		NoConversion{},
		SingleConversion{Unit: "Box", Ratio: d("12"), Op: Multiply},
		DualConversion{Unit2: "Box", Ratio2: d("12"), Op2: Multiply, Unit3: "Gram", Ratio3: d("1000"), Op3: Divide},
		nil,
	}
	for _, c := range conversions {
		res, err := r.Resolve("Pcs", c, d("7"), "Pcs")
		require.NoError(t, err)
		assert.True(t, res.BaseQuantity.Equal(d("7")))
		assert.True(t, res.IsBase())

		res, err = r.Resolve("Pcs", c, d("7"), "")
		require.NoError(t, err)
		assert.True(t, res.BaseQuantity.Equal(d("7")))
	}
}

func TestResolver_Multiply(t *testing.T) {
	r := NewResolver(Precision{Places: 4})
	res, err := r.Resolve("Pcs", SingleConversion{Unit: "Box", Ratio: d("12"), Op: Multiply}, d("2"), "box")
	require.NoError(t, err)

	assert.True(t, res.BaseQuantity.Equal(d("24")), "got %s", res.BaseQuantity)
	assert.Equal(t, "Box", res.Unit)
	assert.True(t, res.UnitPrice(d("1500")).Equal(d("18000")))
	assert.False(t, res.IsBase())
}

func TestResolver_Divide(t *testing.T) {
	conv := DualConversion{
		Unit2: "Box", Ratio2: d("12"), Op2: Multiply,
		Unit3: "Gram", Ratio3: d("1000"), Op3: Divide,
	}

	t.Run("exact at configured precision", func(t *testing.T) {
		r := NewResolver(Precision{Places: 3})
		res, err := r.Resolve("Kg", conv, d("2"), "Gram")
		require.NoError(t, err)
		assert.True(t, res.BaseQuantity.Equal(d("0.002")), "got %s", res.BaseQuantity)
		assert.True(t, res.UnitPrice(d("50000")).Equal(d("50")))
	})

	t.Run("one decimal place rounds small quantities", func(t *testing.T) {
		r := NewResolver(Precision{Places: 1})
		res, err := r.Resolve("Kg", conv, d("2500"), "Gram")
		require.NoError(t, err)
		assert.True(t, res.BaseQuantity.Equal(d("2.5")), "got %s", res.BaseQuantity)
	})

	t.Run("quantity rounded to zero is rejected", func(t *testing.T) {
		r := NewResolver(Precision{Places: 1})
		res, err := r.Resolve("Kg", conv, d("2"), "Gram")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrValidation)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidQuantity, de.Code)
		assert.True(t, res.BaseQuantity.IsZero())

		res, err = r.Resolve("Kg", conv, d("50"), "Gram")
		require.NoError(t, err, "0.05 rounds half away from zero")
		assert.True(t, res.BaseQuantity.Equal(d("0.1")))
	})

	t.Run("exact precision keeps every digit", func(t *testing.T) {
		r := NewResolver(Exact)
		res, err := r.Resolve("Kg", conv, d("1"), "Gram")
		require.NoError(t, err)
		assert.True(t, res.BaseQuantity.Equal(d("0.001")))
	})

	t.Run("second unit of a dual conversion still multiplies", func(t *testing.T) {
		r := NewResolver(Precision{Places: 1})
		res, err := r.Resolve("Kg", conv, d("3"), "BOX")
		require.NoError(t, err)
		assert.True(t, res.BaseQuantity.Equal(d("36")))
	})
}

func TestResolver_InvalidRatio(t *testing.T) {
	r := NewResolver(Precision{Places: 4})
	cases := map[string]Conversion{
		"zero ratio":       SingleConversion{Unit: "Box", Ratio: decimal.Zero, Op: Multiply},
		"missing ratio":    SingleConversion{Unit: "Box", Op: Multiply},
		"negative ratio":   SingleConversion{Unit: "Box", Ratio: d("-3"), Op: Multiply},
		"divide by zero":   SingleConversion{Unit: "Box", Ratio: decimal.Zero, Op: Divide},
		"dual, zero ratio": DualConversion{Unit2: "Pack", Ratio2: d("6"), Op2: Multiply, Unit3: "Box", Op3: Divide},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := r.Resolve("Pcs", c, d("2"), "Box")
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))

			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, shared.CodeInvalidConversionRate, de.Code)
			assert.True(t, res.BaseQuantity.IsZero())
		})
	}
}

func TestResolver_Rejections(t *testing.T) {
	r := NewResolver(Precision{Places: 4})
	single := SingleConversion{Unit: "Box", Ratio: d("12"), Op: Multiply}

	t.Run("unknown unit", func(t *testing.T) {
		_, err := r.Resolve("Pcs", single, d("1"), "Pallet")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("secondary unit without conversion", func(t *testing.T) {
		_, err := r.Resolve("Pcs", NoConversion{}, d("1"), "Box")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		for _, q := range []string{"0", "-1"} {
			_, err := r.Resolve("Pcs", single, d(q), "Box")
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, shared.CodeInvalidQuantity, de.Code)
		}
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := r.Resolve("Pcs", SingleConversion{Unit: "Box", Ratio: d("2"), Op: "pow"}, d("1"), "Box")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}
