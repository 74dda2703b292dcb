package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	CodeMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	CodeRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	CodeInvalidType     = "ERR_IMPORT_INVALID_TYPE"
	CodeInvalidLength   = "ERR_IMPORT_INVALID_LENGTH"
	CodeInvalidRange    = "ERR_IMPORT_INVALID_RANGE"
	CodeDuplicateInFile = "ERR_IMPORT_DUPLICATE_IN_FILE"
	CodeInvalidValue    = "ERR_IMPORT_INVALID_VALUE"
)

// File-level errors
var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
	ErrInvalidHeader   = errors.New("invalid CSV header")
	ErrTooManyRows     = errors.New("CSV file has too many rows")
)

// RowError describes a problem with one field of one line.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest.
type ErrorCollection struct {
	errors    []RowError
	rows      map[int]struct{}
	maxErrors int
	total     int
}

// NewErrorCollection creates a collection. A non-positive limit means 100.
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{maxErrors: maxErrors, rows: make(map[int]struct{})}
}

// Add records an error
func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	ec.rows[err.Row] = struct{}{}
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing required value
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(RowError{Row: row, Column: column, Code: CodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column)})
}

// AddInvalid records a value rejected for a reason other than its shape.
func (ec *ErrorCollection) AddInvalid(row int, column, value, message string) {
	ec.Add(RowError{Row: row, Column: column, Code: CodeInvalidValue, Message: message, Value: value})
}

// Errors returns the kept errors in the order they were added.
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount counts every error, kept or not.
func (ec *ErrorCollection) TotalCount() int {
	return ec.total
}

// HasErrors reports whether any error was added
func (ec *ErrorCollection) HasErrors() bool {
	return ec.total > 0
}

// HasRow reports whether the given line has at least one error.
func (ec *ErrorCollection) HasRow(row int) bool {
	_, ok := ec.rows[row]
	return ok
}

// RowCount is the number of distinct lines with errors.
func (ec *ErrorCollection) RowCount() int {
	return len(ec.rows)
}

// IsTruncated reports whether errors were dropped because of the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.total > len(ec.errors)
}

// String renders the kept errors one per line.
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.total)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", len(ec.errors))
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
