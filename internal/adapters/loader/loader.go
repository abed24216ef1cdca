// Package loader provides dataset loading adapters.
// Clean Architecture: Adapter implementing ports.DatasetLoader.
package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
)

// ErrMalformed is returned for sources that cannot form a valid Dataset.
var ErrMalformed = errors.New("malformed dataset")

// CSVLoader loads comma or tab separated files with a header row.
type CSVLoader struct {
	comma rune
}

// NewCSVLoader creates a loader for comma separated files.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{comma: ','}
}

// NewTSVLoader creates a loader for tab separated files.
func NewTSVLoader() *CSVLoader {
	return &CSVLoader{comma: '\t'}
}

// Load reads the dataset at path. Column names are trimmed and normalized.
func (l *CSVLoader) Load(ctx context.Context, path string) (*entities.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ds, err := l.Read(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	ds.Source = path
	return ds, nil
}

// Read parses a dataset from r.
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*entities.Dataset, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.Comma = l.comma
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformed, err)
	}

	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := NormalizeLabel(h)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrMalformed, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformed, name)
		}
		seen[name] = true
		names[i] = name
	}

	cells := make([][]string, len(names))
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv reports ragged rows as ErrFieldCount
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if isBlank(record) {
			continue
		}
		for i, v := range record {
			cells[i] = append(cells[i], strings.TrimSpace(v))
		}
	}

	ds := &entities.Dataset{LoadedAt: time.Now()}
	for i, name := range names {
		ds.Columns = append(ds.Columns, buildColumn(name, cells[i]))
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ds, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *CSVLoader) SupportedExtensions() []string {
	if l.comma == '\t' {
		return []string{".tsv"}
	}
	return []string{".csv"}
}

// MultiLoader dispatches on file extension.
type MultiLoader struct {
	loaders map[string]*CSVLoader
}

// NewMultiLoader creates a loader that handles .csv and .tsv files.
func NewMultiLoader() *MultiLoader {
	return &MultiLoader{
		loaders: map[string]*CSVLoader{
			".csv": NewCSVLoader(),
			".tsv": NewTSVLoader(),
		},
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		// Default to comma separated
		loader = NewCSVLoader()
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// NormalizeLabel applies NFKC, drops control characters and trims whitespace.
func NormalizeLabel(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// buildColumn types a column numeric when every non-empty cell parses.
func buildColumn(name string, cells []string) entities.Column {
	if cells == nil {
		cells = []string{}
	}
	nums := make([]float64, len(cells))
	numeric, filled := true, 0
	for i, c := range cells {
		if c == "" {
			nums[i] = entities.ParseNumber(c)
			continue
		}
		filled++
		if !entities.IsNumber(c) {
			numeric = false
			break
		}
		nums[i] = entities.ParseNumber(c)
	}

	if !numeric || filled == 0 {
		return entities.Column{Name: name, Kind: entities.KindText, Text: cells}
	}
	return entities.Column{Name: name, Kind: entities.KindNumeric, Text: cells, Num: nums}
}

// isBlank reports a whitespace-only line. Rows of empty fields such as
// ",,," are kept as all-missing rows so row positions match the file.
func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
