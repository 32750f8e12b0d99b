package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// LoadOptions configures a Processor
type LoadOptions struct {
	CSV      CSVOptions
	Warnings *WarningLog // optional JSONL sink
	Timings  *Timings    // optional
	Logger   *zap.Logger // optional
}

// LoadResult is the outcome of reading one CSV file
type LoadResult struct {
	Schema    Schema
	TotalRows int // every data record, including dropped ones
	Groups    []DriverGroup
	Warnings  []RowWarning
}

// Processor reads a CSV file, normalizes every row and groups rows by driver
type Processor struct {
	opts       LoadOptions
	parser     *Parser
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewProcessor opens the CSV and detects its schema. Any error here is a
// setup error: no row has been consumed yet.
func NewProcessor(path string, opts LoadOptions) (*Processor, error) {
	parser, err := NewParser(path, opts.CSV)
	if err != nil {
		return nil, err
	}

	layout, err := DetectSchema(parser.Header())
	if err != nil {
		parser.Close()
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		opts:       opts,
		parser:     parser,
		normalizer: NewNormalizer(layout),
		logger:     logger,
	}, nil
}

// Schema returns the detected schema
func (p *Processor) Schema() Schema {
	return p.normalizer.Layout().Schema
}

// Process consumes the whole file. Row-level problems become warnings;
// only I/O failures and cancellation return an error.
func (p *Processor) Process(ctx context.Context) (*LoadResult, error) {
	defer p.parser.Close()

	agg := NewAggregator()
	result := &LoadResult{Schema: p.Schema()}

	for {
		readStart := time.Now()
		row, err := p.parser.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.TotalRows++
				p.warn(result, RowWarning{RowNo: p.parser.RowNo(), Message: "malformed CSV row: " + parseErr.Err.Error()})
				continue
			}
			return nil, err
		}
		p.opts.Timings.ObserveCSVRead(time.Since(readStart))

		result.TotalRows++
		rowNo := p.parser.RowNo()

		if isEmptyRow(row) {
			p.logger.Debug("Skipping empty row", zap.Int64("row", rowNo))
			continue
		}

		normStart := time.Now()
		normalized, err := p.normalizer.Normalize(rowNo, row)
		p.opts.Timings.ObserveNormalize(time.Since(normStart))
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				p.warn(result, rowErr.Warning())
				continue
			}
			return nil, err
		}

		agg.Add(normalized)
	}

	result.Groups = agg.Groups()

	p.logger.Info("CSV loaded",
		zap.String("schema", result.Schema.String()),
		zap.Int("rows", result.TotalRows),
		zap.Int("drivers", agg.Len()),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}

func (p *Processor) warn(result *LoadResult, w RowWarning) {
	result.Warnings = append(result.Warnings, w)
	p.logger.Warn("Row dropped",
		zap.Int64("row", w.RowNo),
		zap.String("driver", w.DriverID),
		zap.String("reason", w.Message))
	if err := p.opts.Warnings.Write(w); err != nil {
		p.logger.Error("Failed to write warning log", zap.Error(err))
	}
}

// Load is a convenience wrapper around NewProcessor and Process
func Load(ctx context.Context, path string, opts LoadOptions) (*LoadResult, error) {
	p, err := NewProcessor(path, opts)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx)
}
