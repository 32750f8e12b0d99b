package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned when the CSV has no header row
var ErrEmptyFile = errors.New("csv file is empty")

// CSVOptions controls how the input file is decoded
type CSVOptions struct {
	Encoding  string // "utf-8" (default), "windows-1252", "iso-8859-1", "windows-1251"
	Delimiter string // "," (default) or ";"
}

// ValidateCSVOptions checks encoding and delimiter values
func ValidateCSVOptions(opts CSVOptions) error {
	if _, err := decoderFor(opts.Encoding); err != nil {
		return err
	}
	switch opts.Delimiter {
	case "", ",", ";", "\t":
		return nil
	}
	return fmt.Errorf("csv delimiter must be ',', ';' or tab, got %q", opts.Delimiter)
}

func decoderFor(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unsupported csv encoding %q (use utf-8, windows-1252 or iso-8859-1)", encoding)
}

// Parser reads CSV records from a file
type Parser struct {
	file   *os.File
	reader *csv.Reader
	header []string
	rowNo  int64
}

// NewParser opens path, sets up decoding and reads the header row
func NewParser(path string, opts CSVOptions) (*Parser, error) {
	decoder, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}

	if err := ValidatePathExists(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	csvReader := csv.NewReader(transform.NewReader(file, decoder))
	if opts.Delimiter != "" {
		csvReader.Comma = rune(opts.Delimiter[0])
	}
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	return &Parser{
		file:   file,
		reader: csvReader,
		header: header,
	}, nil
}

// Header returns the raw header cells
func (p *Parser) Header() []string {
	return p.header
}

// ReadRow reads the next record. A *csv.ParseError affects only that record;
// the caller may keep reading.
func (p *Parser) ReadRow(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.rowNo++
	if err != nil {
		return nil, fmt.Errorf("csv read error: %w", err)
	}
	return record, nil
}

// RowNo returns the number of data records read so far
func (p *Parser) RowNo() int64 {
	return p.rowNo
}

// Close closes the underlying file
func (p *Parser) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}

// WarningLog appends row warnings to a JSONL file
type WarningLog struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

// OpenWarningLog opens (or creates) path for appending
func OpenWarningLog(path string) (*WarningLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open warnings file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &WarningLog{file: f, writer: w, encoder: json.NewEncoder(w)}, nil
}

// Write appends one warning. A nil log discards it.
func (l *WarningLog) Write(w RowWarning) error {
	if l == nil {
		return nil
	}
	return l.encoder.Encode(w)
}

// Close flushes and closes the file
func (l *WarningLog) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	if err := l.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush warnings writer: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
