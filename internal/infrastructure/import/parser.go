// Package csvimport reads header-addressed CSV files and validates their
// rows field by field, reporting problems with the file line they came from.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Parser reads a CSV file whose first record is a header row.
type Parser struct {
	delimiter rune
	maxRows   int
	reader    *csv.Reader
	header    []string
	index     map[string]int
	line      int
	rows      int
}

// Option configures a Parser.
type Option func(*Parser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) Option {
	return func(p *Parser) {
		p.delimiter = d
	}
}

// WithMaxRows limits the number of data rows. Zero means no limit.
func WithMaxRows(n int) Option {
	return func(p *Parser) {
		p.maxRows = n
	}
}

// NewParser strips a UTF-8 byte order mark, checks the encoding and
// reads the header row.
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	p := &Parser{delimiter: ',', index: make(map[string]int)}
	for _, opt := range opts {
		opt(p)
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
		head = head[3:]
	}
	if !validPrefix(head) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(br)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1

	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	p.line = 1
	for i, h := range record {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if _, dup := p.index[name]; dup {
			return nil, fmt.Errorf("%w: column %q appears twice", ErrInvalidHeader, name)
		}
		p.index[name] = i
		p.header = append(p.header, name)
	}
	if len(p.header) == 0 {
		return nil, ErrMissingHeader
	}
	return p, nil
}

// NormalizeHeader lower-cases a header and joins its words with underscores,
// so "Min Level" and "min_level" address the same column.
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(h))), "_")
}

// validPrefix accepts b when it is valid UTF-8 apart from a trailing rune
// cut off by the peek window.
func validPrefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			return !utf8.FullRune(b[i:]) && utf8.Valid(b[:i])
		}
	}
	return false
}

// Header returns the normalized column names in file order.
func (p *Parser) Header() []string {
	return p.header
}

// Missing returns the required columns absent from the header.
func (p *Parser) Missing(required ...string) []string {
	var missing []string
	for _, c := range required {
		if _, ok := p.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Row is one data record keyed by normalized column name.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed value of a column, or "" when absent.
func (r *Row) Get(column string) string {
	return r.Values[column]
}

// IsBlank reports whether every field of the row is empty.
func (r *Row) IsBlank() bool {
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next non-blank row, or io.EOF.
func (p *Parser) Next() (*Row, error) {
	for {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.line = perr.StartLine
				return nil, RowError{Row: perr.StartLine, Code: CodeMalformedRow, Message: perr.Err.Error()}
			}
			return nil, fmt.Errorf("read row after line %d: %w", p.line, err)
		}
		p.line, _ = p.reader.FieldPos(0)

		row := &Row{Line: p.line, Values: make(map[string]string, len(p.header))}
		for _, name := range p.header {
			i := p.index[name]
			if i < len(record) {
				row.Values[name] = strings.TrimSpace(record[i])
			}
		}
		if row.IsBlank() {
			continue
		}
		p.rows++
		if p.maxRows > 0 && p.rows > p.maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, p.maxRows)
		}
		return row, nil
	}
}

// All reads every remaining row. Malformed rows are collected into errs
// and skipped.
func (p *Parser) All(errs *ErrorCollection) ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			errs.Add(rowErr)
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
