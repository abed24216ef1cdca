// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrColumnNotFound is returned when a named column is absent from a Dataset.
	ErrColumnNotFound = errors.New("column not found")

	// ErrRaggedColumn is returned when a column length differs from the Dataset row count.
	ErrRaggedColumn = errors.New("column length does not match row count")
)

// ColumnKind tells whether a column carries parsed numbers or only text.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
)

func (k ColumnKind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Column is one named sequence of cells.
// Text always holds the raw cell values. Num is populated for numeric
// columns only, with NaN standing for a missing cell.
type Column struct {
	Name string
	Kind ColumnKind
	Text []string
	Num  []float64
}

// Len returns the number of cells in the column.
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Num)
	}
	return len(c.Text)
}

// Float returns the numeric value of row i, NaN when missing or not numeric.
func (c Column) Float(i int) float64 {
	if c.Kind != KindNumeric || i < 0 || i >= len(c.Num) {
		return math.NaN()
	}
	return c.Num[i]
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Text != nil {
		out.Text = append([]string(nil), c.Text...)
	}
	if c.Num != nil {
		out.Num = append([]float64(nil), c.Num...)
	}
	return out
}

// NumericColumn builds a numeric column, rendering Text from the values.
func NumericColumn(name string, values []float64) Column {
	text := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		text[i] = fmt.Sprintf("%g", v)
	}
	return Column{Name: name, Kind: KindNumeric, Text: text, Num: values}
}

// Dataset is an ordered collection of equally long named columns.
// Row identity is positional.
type Dataset struct {
	Source   string
	Columns  []Column
	LoadedAt time.Time
}

// Rows returns the shared row count.
func (d *Dataset) Rows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Names returns column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Clone returns a deep copy so callers can augment without touching the original.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Source:   d.Source,
		LoadedAt: d.LoadedAt,
		Columns:  make([]Column, len(d.Columns)),
	}
	for i, c := range d.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// SetColumn replaces the column with the same name, or appends it.
func (d *Dataset) SetColumn(col Column) error {
	if len(d.Columns) > 0 && col.Len() != d.Rows() {
		return fmt.Errorf("%w: %q has %d rows, dataset has %d", ErrRaggedColumn, col.Name, col.Len(), d.Rows())
	}
	for i, c := range d.Columns {
		if c.Name == col.Name {
			d.Columns[i] = col
			return nil
		}
	}
	d.Columns = append(d.Columns, col)
	return nil
}

// Validate checks the Dataset invariants: unique names and equal lengths.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Columns))
	rows := d.Rows()
	for _, c := range d.Columns {
		if c.Name == "" {
			return errors.New("empty column name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if c.Len() != rows {
			return fmt.Errorf("%w: %q", ErrRaggedColumn, c.Name)
		}
	}
	return nil
}

// Entry pairs one sub-question with its answer or failure.
type Entry struct {
	Question string
	Answer   string
	Err      error
}

// Failed reports whether the entry stands for an answering failure.
func (e Entry) Failed() bool {
	return e.Err != nil
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// ChatRequest is one user turn addressed to a session.
type ChatRequest struct {
	SessionID string
	Utterance string
}

// ChatResponse is the rendered reply for one turn.
type ChatResponse struct {
	SessionID  string
	Text       string
	Decomposed bool
}
