package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/louhia/hankintadata/pkg/catalog"
	"github.com/louhia/hankintadata/pkg/store"
)

// Options control one pipeline run.
type Options struct {
	Years []int // restrict to these source years; empty means all discovered
	Force bool  // redownload files already on disk
	Clear bool  // wipe invoices and ledger before downloading anything
}

// FileResult is one resource's outcome within a run.
type FileResult struct {
	ResourceID string
	Name       string
	Year       int
	Records    int
	Rejected   int
	Err        string
}

// RunReport summarizes a whole run.
type RunReport struct {
	Files        int
	Succeeded    int
	Failed       int
	TotalRecords int
	Results      []FileResult
}

// Pipeline wires catalog discovery, download, and import into the sequential
// ingestion workflow. One resource at a time, downloads first, then imports;
// there is deliberately no concurrency here.
type Pipeline struct {
	catalog    *catalog.Client
	datasetID  string
	downloader *Downloader
	importer   *Importer
	invoices   *store.InvoiceStore
	logger     *slog.Logger
}

func NewPipeline(cc *catalog.Client, datasetID string, dl *Downloader, imp *Importer, invoices *store.InvoiceStore, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		catalog:    cc,
		datasetID:  datasetID,
		downloader: dl,
		importer:   imp,
		invoices:   invoices,
		logger:     logger,
	}
}

// Run executes one ingestion pass. Metadata and download failures are fatal;
// a single file's import failure is recorded in the report and the remaining
// files are still attempted.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunReport, error) {
	ds, err := p.catalog.Dataset(ctx, p.datasetID)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset metadata: %w", err)
	}

	resources := p.selectResources(ds, opts.Years)
	p.logger.Info("resources selected", "dataset", p.datasetID, "count", len(resources))

	if opts.Clear {
		// Global wipe: clears every year, not just the ones selected for
		// this run.
		p.logger.Warn("clearing all invoices and ledger rows")
		if err := p.invoices.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	type downloaded struct {
		res catalog.Resource
		dl  DownloadResult
	}
	var toImport []downloaded
	for _, res := range resources {
		dl, err := p.downloader.Fetch(ctx, res, opts.Force)
		if err != nil {
			return nil, err
		}
		if dl.Skipped {
			continue
		}
		toImport = append(toImport, downloaded{res: res, dl: dl})
	}

	report := &RunReport{}
	for _, d := range toImport {
		year, _ := catalog.ExtractYear(d.res.Name)
		result := FileResult{ResourceID: d.res.ID, Name: d.res.Name, Year: year}

		out, err := p.importer.ImportFile(ctx, d.dl.Path, d.res)
		result.Records = out.Records
		result.Rejected = out.Rejected
		report.Files++

		if err != nil {
			result.Err = err.Error()
			report.Failed++
			p.logger.Error("file import failed", "file", d.res.Name, "error", err)
		} else {
			report.Succeeded++
			report.TotalRecords += out.Records
		}
		report.Results = append(report.Results, result)
	}

	return report, nil
}

// selectResources filters the dataset to in-scope data files, drops
// resources without a year tag (unusable for year-partitioned rows), and
// applies the optional exact-match year restriction.
func (p *Pipeline) selectResources(ds *catalog.Dataset, years []int) []catalog.Resource {
	wanted := make(map[int]bool, len(years))
	for _, y := range years {
		wanted[y] = true
	}

	var selected []catalog.Resource
	for _, res := range catalog.FilterResources(ds) {
		year, ok := catalog.ExtractYear(res.Name)
		if !ok {
			p.logger.Warn("resource has no year tag, skipping", "name", res.Name)
			continue
		}
		if len(years) > 0 && !wanted[year] {
			continue
		}
		selected = append(selected, res)
	}
	return selected
}
