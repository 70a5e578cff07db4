package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-shelf/models"
)

// OutputWriter defines the interface for persisting the final record
// list. Write receives the complete, ID-sorted slice once per run; an
// empty slice must still produce valid output.
type OutputWriter interface {
	Write(records []*models.Record) error
	Close() error
	Validate() error
}

// goodreadsColumns is the import column set expected by Goodreads.
var goodreadsColumns = []string{
	"Title", "Author", "ISBN", "My Rating", "Average Rating",
	"Publisher", "Binding", "Year Published", "Original Publication Year",
	"Date Read", "Date Added", "Shelves", "Bookshelves", "My Review",
}

// JSONWriter writes the records as one indented JSON array document.
type JSONWriter struct {
	file *os.File
	mu   sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	return &JSONWriter{file: f}, nil
}

// Write serialises the full record list, replacing any prior content.
// An empty list writes an empty array, not an empty file.
func (jw *JSONWriter) Write(records []*models.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if records == nil {
		records = []*models.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	if err := jw.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate json file: %w", err)
	}
	if _, err := jw.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// Close closes the file handle.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.file.Close()
}

// Validate ensures the output parses as a JSON document.
func (jw *JSONWriter) Validate() error {
	data, err := os.ReadFile(jw.file.Name())
	if err != nil {
		return fmt.Errorf("read json file: %w", err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("json file does not parse")
	}
	return nil
}

// CSVWriter writes records as Goodreads-import rows.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(goodreadsColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{file: f, writer: writer}, nil
}

// Write appends one row per record. List fields are joined, missing
// optionals render empty.
func (cw *CSVWriter) Write(records []*models.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, record := range records {
		if err := cw.writer.Write(goodreadsRow(record)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has at least the header row.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

func goodreadsRow(r *models.Record) []string {
	row := make([]string, len(goodreadsColumns))
	row[0] = r.Title
	row[1] = strings.Join(r.Authors, ", ")
	row[2] = stringOrEmpty(r.ISBN)
	if r.Rating != nil {
		row[4] = strconv.FormatFloat(*r.Rating, 'f', -1, 64)
	}
	if r.YearOfProduction != nil {
		row[7] = strconv.Itoa(*r.YearOfProduction)
	}
	return row
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
