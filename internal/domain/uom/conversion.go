// Package uom resolves quantities entered in secondary units of measure
// into the base unit that stock is held in.
package uom

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// Operator tells how a secondary unit relates to the base unit.
type Operator string

const (
	// Multiply means 1 secondary unit = ratio base units (Box of 12 Pcs).
	Multiply Operator = "multiply"
	// Divide means 1 secondary unit = 1/ratio base units (Gram of a Kg).
	Divide Operator = "divide"
)

// IsValid reports whether the operator is known.
func (o Operator) IsValid() bool {
	switch o {
	case Multiply, Divide:
		return true
	}
	return false
}

// ParseOperator accepts the operator names and symbols operators type in.
// An empty string defaults to Multiply.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multiply", "*", "x":
		return Multiply, nil
	case "divide", "/", ":":
		return Divide, nil
	default:
		return "", shared.NewValidationError("unknown conversion operator %q", s)
	}
}

// Conversion is the secondary-unit configuration of an item. It is one of
// NoConversion, SingleConversion or DualConversion.
type Conversion interface {
	conversion()
}

// NoConversion means only the base unit is available.
type NoConversion struct{}

// SingleConversion defines one secondary unit.
type SingleConversion struct {
	Unit  string
	Ratio decimal.Decimal
	Op    Operator
}

// DualConversion defines two secondary units, each with its own operator.
type DualConversion struct {
	Unit2  string
	Ratio2 decimal.Decimal
	Op2    Operator
	Unit3  string
	Ratio3 decimal.Decimal
	Op3    Operator
}

func (NoConversion) conversion()     {}
func (SingleConversion) conversion() {}
func (DualConversion) conversion()   {}

// step is one secondary unit definition.
type step struct {
	unit  string
	ratio decimal.Decimal
	op    Operator
}

func steps(c Conversion) []step {
	switch c := c.(type) {
	case SingleConversion:
		return []step{{c.Unit, c.Ratio, c.Op}}
	case DualConversion:
		return []step{{c.Unit2, c.Ratio2, c.Op2}, {c.Unit3, c.Ratio3, c.Op3}}
	default:
		return nil
	}
}

// Units lists the units a quantity may be entered in, base unit first.
func Units(baseUnit string, c Conversion) []string {
	units := []string{baseUnit}
	for _, s := range steps(c) {
		if s.unit != "" {
			units = append(units, s.unit)
		}
	}
	return units
}

// Validate checks that every defined secondary unit has a positive ratio
// and a known operator.
func Validate(c Conversion) error {
	for _, s := range steps(c) {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s step) validate() error {
	if strings.TrimSpace(s.unit) == "" {
		return shared.NewValidationError("conversion unit name is required")
	}
	if !s.ratio.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidConversionRate,
			"conversion ratio for unit "+s.unit+" must be greater than zero")
	}
	if !s.op.IsValid() {
		return shared.NewValidationError("unknown conversion operator %q for unit %s", s.op, s.unit)
	}
	return nil
}

// FromOptional builds the conversion for an item with at most one
// secondary unit. An empty unit name yields NoConversion.
func FromOptional(unit string, ratio decimal.Decimal, op Operator) Conversion {
	if strings.TrimSpace(unit) == "" {
		return NoConversion{}
	}
	return SingleConversion{Unit: unit, Ratio: ratio, Op: op}
}

// FromPair builds the conversion for an item with up to two secondary
// units, collapsing to SingleConversion or NoConversion when units are unset.
func FromPair(unit2 string, ratio2 decimal.Decimal, op2 Operator, unit3 string, ratio3 decimal.Decimal, op3 Operator) Conversion {
	has2 := strings.TrimSpace(unit2) != ""
	has3 := strings.TrimSpace(unit3) != ""
	switch {
	case has2 && has3:
		return DualConversion{Unit2: unit2, Ratio2: ratio2, Op2: op2, Unit3: unit3, Ratio3: ratio3, Op3: op3}
	case has2:
		return SingleConversion{Unit: unit2, Ratio: ratio2, Op: op2}
	case has3:
		return SingleConversion{Unit: unit3, Ratio: ratio3, Op: op3}
	default:
		return NoConversion{}
	}
}
