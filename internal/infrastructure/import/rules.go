package csvimport

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDecimal FieldType = "decimal"
)

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	Present   bool
	MaxLength int
	MinValue  *decimal.Decimal
	Unique    bool
	Check     func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for column.
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Present requires the column in the header but accepts empty values
func (b *FieldRuleBuilder) Present() *FieldRuleBuilder {
	b.rule.Present = true
	return b
}

// Decimal expects a decimal number
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// MaxLength limits the value length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// MinValue sets an inclusive lower bound for decimal fields
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Unique rejects values repeated within the file, compared case-insensitively.
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Check adds a custom check run after the type and range checks.
func (b *FieldRuleBuilder) Check(fn func(value string) error) *FieldRuleBuilder {
	b.rule.Check = fn
	return b
}

// Build returns the rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator applies rules to rows and records failures.
type FieldValidator struct {
	rules  []FieldRule
	seen   map[string]map[string]int // column -> folded value -> first line
	errors *ErrorCollection
}

// NewFieldValidator creates a validator writing into errs.
func NewFieldValidator(rules []FieldRule, errs *ErrorCollection) *FieldValidator {
	return &FieldValidator{
		rules:  rules,
		seen:   make(map[string]map[string]int),
		errors: errs,
	}
}

// RequiredColumns lists the columns the header must contain.
func (v *FieldValidator) RequiredColumns() []string {
	var cols []string
	for _, r := range v.rules {
		if r.Required || r.Present {
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// ValidateRow checks every rule against row and reports whether it passed.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	for _, rule := range v.rules {
		if !v.validateField(row, rule) {
			ok = false
		}
	}
	return ok
}

func (v *FieldValidator) validateField(row *Row, rule FieldRule) bool {
	value := row.Get(rule.Column)
	if value == "" {
		if rule.Required {
			v.errors.AddRequired(row.Line, rule.Column)
			return false
		}
		return true
	}

	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		v.errors.Add(RowError{Row: row.Line, Column: rule.Column, Code: CodeInvalidLength,
			Message: fmt.Sprintf("length must be at most %d", rule.MaxLength), Value: value})
		return false
	}

	if rule.Type == TypeDecimal {
		d, err := decimal.NewFromString(value)
		if err != nil {
			v.errors.Add(RowError{Row: row.Line, Column: rule.Column, Code: CodeInvalidType,
				Message: "expected decimal", Value: value})
			return false
		}
		if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
			v.errors.Add(RowError{Row: row.Line, Column: rule.Column, Code: CodeInvalidRange,
				Message: fmt.Sprintf("value must be at least %s", rule.MinValue.String()), Value: value})
			return false
		}
	}

	if rule.Unique {
		key := strings.ToLower(value)
		if v.seen[rule.Column] == nil {
			v.seen[rule.Column] = make(map[string]int)
		}
		if first, dup := v.seen[rule.Column][key]; dup {
			v.errors.Add(RowError{Row: row.Line, Column: rule.Column, Code: CodeDuplicateInFile,
				Message: fmt.Sprintf("duplicate value '%s' (first seen in row %d)", value, first), Value: value})
			return false
		}
		v.seen[rule.Column][key] = row.Line
	}

	if rule.Check != nil {
		if err := rule.Check(value); err != nil {
			v.errors.AddInvalid(row.Line, rule.Column, value, err.Error())
			return false
		}
	}
	return true
}
