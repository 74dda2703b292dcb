package uom

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// Precision is the rounding step applied to converted base quantities.
// A negative Places keeps the exact result.
type Precision struct {
	Places int32
}

// Exact disables rounding.
var Exact = Precision{Places: -1}

// Apply rounds d half away from zero to the configured places.
func (p Precision) Apply(d decimal.Decimal) decimal.Decimal {
	if p.Places < 0 {
		return d
	}
	return d.Round(p.Places)
}

// Resolution is the outcome of resolving a typed quantity.
type Resolution struct {
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	BaseUnit     string          `json:"base_unit"`
	Ratio        decimal.Decimal `json:"ratio"`
	Op           Operator        `json:"op"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
}

// IsBase reports whether the quantity was entered in the base unit.
func (r Resolution) IsBase() bool {
	return r.Ratio.Equal(decimal.NewFromInt(1)) && r.Op == Multiply && strings.EqualFold(r.Unit, r.BaseUnit)
}

// UnitPrice converts a price per base unit into a price per entered unit.
func (r Resolution) UnitPrice(basePrice decimal.Decimal) decimal.Decimal {
	if r.Op == Divide {
		return basePrice.Div(r.Ratio)
	}
	return basePrice.Mul(r.Ratio)
}

// Resolver converts quantities into base units.
type Resolver struct {
	precision Precision
}

// NewResolver creates a resolver that rounds base quantities with p.
func NewResolver(p Precision) *Resolver {
	return &Resolver{precision: p}
}

// Precision returns the rounding step of the resolver.
func (r *Resolver) Precision() Precision {
	return r.precision
}

// Resolve maps qty typed in unit to the base unit of an item whose
// secondary units are described by c. An empty unit means the base unit.
func (r *Resolver) Resolve(baseUnit string, c Conversion, qty decimal.Decimal, unit string) (Resolution, error) {
	if !qty.IsPositive() {
		return Resolution{}, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("quantity must be greater than zero, got %s", qty.String()))
	}
	unit = strings.TrimSpace(unit)
	if unit == "" || strings.EqualFold(unit, baseUnit) {
		return Resolution{
			Quantity:     qty,
			Unit:         baseUnit,
			BaseUnit:     baseUnit,
			Ratio:        decimal.NewFromInt(1),
			Op:           Multiply,
			BaseQuantity: qty,
		}, nil
	}

	if c == nil {
		c = NoConversion{}
	}
	var candidates []step
	switch c := c.(type) {
	case NoConversion:
	case SingleConversion:
		candidates = []step{{c.Unit, c.Ratio, c.Op}}
	case DualConversion:
		candidates = []step{{c.Unit2, c.Ratio2, c.Op2}, {c.Unit3, c.Ratio3, c.Op3}}
	default:
		return Resolution{}, shared.NewValidationError("unsupported conversion %T", c)
	}

	for _, s := range candidates {
		if s.unit == "" || !strings.EqualFold(s.unit, unit) {
			continue
		}
		return r.apply(baseUnit, s, qty)
	}
	return Resolution{}, shared.NewValidationError("unit %q is not defined for this item (base unit %s)", unit, baseUnit)
}

func (r *Resolver) apply(baseUnit string, s step, qty decimal.Decimal) (Resolution, error) {
	if err := s.validate(); err != nil {
		return Resolution{}, err
	}
	var base decimal.Decimal
	switch s.op {
	case Divide:
		base = qty.Div(s.ratio)
	default:
		base = qty.Mul(s.ratio)
	}
	rounded := r.precision.Apply(base)
	if !rounded.IsPositive() {
		return Resolution{}, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("%s %s is below the precision of %d decimal places in %s", qty.String(), s.unit, r.precision.Places, baseUnit)).
			WithDetail("base_quantity", base.String())
	}
	return Resolution{
		Quantity:     qty,
		Unit:         s.unit,
		BaseUnit:     baseUnit,
		Ratio:        s.ratio,
		Op:           s.op,
		BaseQuantity: rounded,
	}, nil
}
