// Package tabledb provides a queryable SQL copy of a dataset.
// Clean Architecture: Adapter used by the analyst answering engine.
// Each Table is a private in-memory SQLite database (via CGO).
package tabledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
)

// TableName is the name the dataset is exposed under.
const TableName = "data"

var (
	// ErrNotReadOnly is returned for statements other than SELECT or WITH.
	ErrNotReadOnly = errors.New("only SELECT statements are allowed")

	// ErrMultipleStatements is returned when a query holds more than one statement.
	ErrMultipleStatements = errors.New("only one statement is allowed")
)

// Result is a rendered query result. Cells are text, NULL becomes "".
type Result struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
}

// Table holds one dataset in its own in-memory database.
type Table struct {
	db      *sql.DB
	columns []entities.Column
	rows    int
}

// Open copies ds into a fresh in-memory database and makes it query-only.
func Open(ctx context.Context, ds *entities.Dataset) (*Table, error) {
	if ds == nil || len(ds.Columns) == 0 {
		return nil, errors.New("dataset has no columns")
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	t := &Table{db: db, columns: ds.Columns, rows: ds.Rows()}
	if err := t.load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading table: %w", err)
	}
	return t, nil
}

func (t *Table) load(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, t.Schema()); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	names := make([]string, len(t.columns))
	marks := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(TableName), strings.Join(names, ", "), strings.Join(marks, ", "),
	))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.columns))
	for row := 0; row < t.rows; row++ {
		for i, c := range t.columns {
			args[i] = cellValue(c, row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", row+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	_, err = t.db.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

// Schema returns the CREATE TABLE statement for the dataset.
func (t *Table) Schema() string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		typ := "TEXT"
		if c.Kind == entities.KindNumeric {
			typ = "REAL"
		}
		defs[i] = quoteIdent(c.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(TableName), strings.Join(defs, ", "))
}

// Rows returns the number of rows loaded.
func (t *Table) Rows() int {
	return t.rows
}

// Sample returns the first n rows.
func (t *Table) Sample(ctx context.Context, n int) (*Result, error) {
	return t.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(TableName), n), n)
}

// Query runs a single read-only statement. At most limit rows are returned
// when limit is positive.
func (t *Table) Query(ctx context.Context, query string, limit int) (*Result, error) {
	query, err := checkStatement(query)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	res := &Result{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if limit > 0 && len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the database.
func (t *Table) Close() error {
	return t.db.Close()
}

// checkStatement trims a trailing semicolon and rejects anything other
// than a single SELECT or WITH statement.
func checkStatement(query string) (string, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimSpace(strings.TrimRight(query, "; \t\r\n"))
	if query == "" {
		return "", errors.New("empty query")
	}

	fields := strings.Fields(query)
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
	default:
		return "", fmt.Errorf("%w: got %s", ErrNotReadOnly, fields[0])
	}

	if hasSeparator(query) {
		return "", ErrMultipleStatements
	}
	return query, nil
}

// hasSeparator reports a semicolon outside quotes and comments.
func hasSeparator(query string) bool {
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 3
		case c == ';':
			return true
		}
	}
	return false
}

func cellValue(c entities.Column, row int) any {
	if c.Kind == entities.KindNumeric {
		v := c.Float(row)
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	if row >= len(c.Text) || c.Text[row] == "" {
		return nil
	}
	return c.Text[row]
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
