// Package reject records defective or discarded goods. Reject logs are an
// audit trail and never change inventory stock.
package reject

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/uom"
)

// RejectItem is master data for goods that may be rejected. It supports up
// to two secondary units, each multiplying or dividing into the base unit.
type RejectItem struct {
	shared.BaseEntity
	SKU      string
	Name     string
	BaseUnit string
	Unit2    string
	Ratio2   decimal.Decimal
	Op2      uom.Operator
	Unit3    string
	Ratio3   decimal.Decimal
	Op3      uom.Operator
}

// ItemAttributes are the editable fields of a RejectItem.
type ItemAttributes struct {
	SKU      string
	Name     string
	BaseUnit string
	Unit2    string
	Ratio2   decimal.Decimal
	Op2      uom.Operator
	Unit3    string
	Ratio3   decimal.Decimal
	Op3      uom.Operator
}

func (a *ItemAttributes) normalize() {
	a.SKU = strings.TrimSpace(a.SKU)
	a.Name = strings.TrimSpace(a.Name)
	a.BaseUnit = strings.TrimSpace(a.BaseUnit)
	a.Unit2 = strings.TrimSpace(a.Unit2)
	a.Unit3 = strings.TrimSpace(a.Unit3)
	if a.BaseUnit == "" {
		a.BaseUnit = "Pcs"
	}
	if a.Unit2 == "" {
		a.Ratio2, a.Op2 = decimal.Zero, ""
	} else if a.Op2 == "" {
		a.Op2 = uom.Multiply
	}
	if a.Unit3 == "" {
		a.Ratio3, a.Op3 = decimal.Zero, ""
	} else if a.Op3 == "" {
		a.Op3 = uom.Multiply
	}
}

func (a ItemAttributes) validate() error {
	if a.SKU == "" {
		return shared.NewValidationError("sku is required")
	}
	if a.Name == "" {
		return shared.NewValidationError("name is required for reject item %s", a.SKU)
	}
	if a.Unit2 != "" && a.Unit3 != "" && strings.EqualFold(a.Unit2, a.Unit3) {
		return shared.NewValidationError("unit2 and unit3 must differ")
	}
	for _, u := range []string{a.Unit2, a.Unit3} {
		if u != "" && strings.EqualFold(u, a.BaseUnit) {
			return shared.NewValidationError("unit %s duplicates the base unit", u)
		}
	}
	return uom.Validate(uom.FromPair(a.Unit2, a.Ratio2, a.Op2, a.Unit3, a.Ratio3, a.Op3))
}

// NewRejectItem creates reject master data.
func NewRejectItem(attrs ItemAttributes) (*RejectItem, error) {
	attrs.normalize()
	if err := attrs.validate(); err != nil {
		return nil, err
	}
	item := &RejectItem{BaseEntity: shared.NewBaseEntity()}
	item.assign(attrs)
	return item, nil
}

// Update replaces the editable fields.
func (r *RejectItem) Update(attrs ItemAttributes) error {
	attrs.normalize()
	if err := attrs.validate(); err != nil {
		return err
	}
	r.assign(attrs)
	r.Touch()
	return nil
}

func (r *RejectItem) assign(a ItemAttributes) {
	r.SKU, r.Name, r.BaseUnit = a.SKU, a.Name, a.BaseUnit
	r.Unit2, r.Ratio2, r.Op2 = a.Unit2, a.Ratio2, a.Op2
	r.Unit3, r.Ratio3, r.Op3 = a.Unit3, a.Ratio3, a.Op3
}

// Conversion returns the secondary-unit definition of the item.
func (r *RejectItem) Conversion() uom.Conversion {
	return uom.FromPair(r.Unit2, r.Ratio2, r.Op2, r.Unit3, r.Ratio3, r.Op3)
}

// Units lists the units a reject quantity may be entered in.
func (r *RejectItem) Units() []string {
	return uom.Units(r.BaseUnit, r.Conversion())
}
