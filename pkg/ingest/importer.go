package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/louhia/hankintadata/pkg/catalog"
	"github.com/louhia/hankintadata/pkg/store"
)

// ErrStreamCorrupt signals a structural failure of the underlying reader,
// as opposed to a row-level rejection. It aborts the current file; batches
// already flushed stay committed.
var ErrStreamCorrupt = errors.New("source stream corrupt")

const (
	defaultBatchSize = 1000
	// maxLoggedRejects caps rejection diagnostics per file; the rest are
	// only counted. Real exports can reject tens of thousands of rows.
	maxLoggedRejects = 5
)

// Outcome summarizes one file's import.
type Outcome struct {
	Records  int // rows committed to storage
	Rejected int // rows dropped by validation or row-level parse errors
}

// Importer stream-parses downloaded files into the invoice table and keeps
// the import ledger current.
type Importer struct {
	invoices  *store.InvoiceStore
	ledger    *store.Ledger
	logger    *slog.Logger
	batchSize int
}

func NewImporter(invoices *store.InvoiceStore, ledger *store.Ledger, logger *slog.Logger) *Importer {
	return &Importer{
		invoices:  invoices,
		ledger:    ledger,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

// ImportFile parses one downloaded resource into the invoice table. The
// ledger row moves pending -> completed, or pending -> failed when the parse
// pass aborts, so a crash or stream error never leaves a file marked
// completed.
func (imp *Importer) ImportFile(ctx context.Context, path string, res catalog.Resource) (Outcome, error) {
	year, _ := catalog.ExtractYear(res.Name)

	rec := &store.ImportRecord{
		ResourceID:   res.ID,
		Name:         res.Name,
		URL:          res.URL,
		Format:       res.Format,
		Year:         year,
		LastModified: res.LastModified,
	}
	if err := imp.ledger.MarkPending(ctx, rec); err != nil {
		return Outcome{}, err
	}

	out, err := imp.parseFile(ctx, path, res, year)
	if err != nil {
		if ferr := imp.ledger.Fail(ctx, res.ID, err.Error()); ferr != nil {
			imp.logger.Error("ledger fail update", "resource", res.ID, "error", ferr)
		}
		return out, err
	}

	if err := imp.ledger.Complete(ctx, res.ID, out.Records); err != nil {
		return out, err
	}

	imp.logger.Info("file imported",
		"file", res.Name,
		"year", year,
		"records", out.Records,
		"rejected", out.Rejected,
	)
	return out, nil
}

func (imp *Importer) parseFile(ctx context.Context, path string, res catalog.Resource, year int) (Outcome, error) {
	var out Outcome

	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("%w: open %s: %v", ErrStreamCorrupt, path, err)
	}
	defer f.Close()

	reader, err := newSourceReader(f)
	if err != nil {
		return out, fmt.Errorf("%w: sniff encoding: %v", ErrStreamCorrupt, err)
	}

	r := csv.NewReader(reader)
	r.Comma = DetectDelimiter(path, res.Format)
	// Real-world exports break strict quoting and pad or drop columns; a
	// lazy reader with free-form record lengths gets through whole files
	// that would otherwise abort on the first stray quote.
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("%w: read header: %v", ErrStreamCorrupt, err)
	}
	mapper := newRowMapper(header)

	batch := make([]*store.Invoice, 0, imp.batchSize)
	var zeroedAmounts int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := imp.invoices.UpsertBatch(ctx, batch); err != nil {
			return err
		}
		out.Records += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			out.Rejected++
			if out.Rejected <= maxLoggedRejects {
				imp.logger.Warn("row rejected", "file", res.Name, "line", parseErr.Line, "reason", parseErr.Err)
			}
			continue
		}
		if err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrStreamCorrupt, res.Name, err)
		}

		inv, zeroed, reject := buildInvoice(mapper, record, year)
		if reject != "" {
			out.Rejected++
			if out.Rejected <= maxLoggedRejects {
				imp.logger.Warn("row rejected", "file", res.Name, "reason", reject)
			}
			continue
		}
		if zeroed {
			zeroedAmounts++
		}

		batch = append(batch, inv)
		if len(batch) >= imp.batchSize {
			if err := flush(); err != nil {
				return out, err
			}
		}
	}

	if err := flush(); err != nil {
		return out, err
	}

	if zeroedAmounts > 0 {
		imp.logger.Warn("amounts defaulted to zero", "file", res.Name, "rows", zeroedAmounts)
	}
	return out, nil
}
