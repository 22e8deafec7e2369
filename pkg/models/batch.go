package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrRaggedBatch is returned when records of one batch disagree on their columns.
var ErrRaggedBatch = errors.New("batch records do not share the same columns")

// Record is one row keyed by column name.
type Record map[string]any

// Batch is an ordered set of uniformly shaped records, the unit moved from a
// fetch to an insert. Columns keeps the source column order.
type Batch struct {
	Columns []string
	Records []Record
}

// NewBatch builds a batch and checks that every record carries exactly the
// given columns. With no columns given they are taken from the first record
// in sorted order.
func NewBatch(columns []string, records []Record) (Batch, error) {
	if len(columns) == 0 && len(records) > 0 {
		for k := range records[0] {
			columns = append(columns, k)
		}
		slices.Sort(columns)
	}
	b := Batch{Columns: columns, Records: records}
	if err := b.Validate(); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// Validate checks that columns are unique and every record carries exactly them.
func (b Batch) Validate() error {
	seen := make(map[string]struct{}, len(b.Columns))
	for _, c := range b.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrRaggedBatch, c)
		}
		seen[c] = struct{}{}
	}
	for i, r := range b.Records {
		if len(r) != len(b.Columns) {
			return fmt.Errorf("%w: record %d has %d columns, want %d", ErrRaggedBatch, i, len(r), len(b.Columns))
		}
		for _, c := range b.Columns {
			if _, ok := r[c]; !ok {
				return fmt.Errorf("%w: record %d is missing column %q", ErrRaggedBatch, i, c)
			}
		}
	}
	return nil
}

func (b Batch) Len() int {
	return len(b.Records)
}

func (b Batch) Empty() bool {
	return len(b.Records) == 0
}

// Rows returns the record values laid out in column order.
func (b Batch) Rows() [][]any {
	rows := make([][]any, len(b.Records))
	for i, r := range b.Records {
		row := make([]any, len(b.Columns))
		for j, c := range b.Columns {
			row[j] = r[c]
		}
		rows[i] = row
	}
	return rows
}

// Clone copies the column list and every record map. Values are shared.
func (b Batch) Clone() Batch {
	out := Batch{Columns: slices.Clone(b.Columns), Records: make([]Record, len(b.Records))}
	for i, r := range b.Records {
		c := make(Record, len(r))
		for k, v := range r {
			c[k] = v
		}
		out.Records[i] = c
	}
	return out
}
