// Package ingest implements the procurement data pipeline: download the
// yearly CSV/TSV resources, sniff their delimiter and encoding, stream-parse
// them into canonical invoice rows, and record provenance in the import
// ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louhia/hankintadata/pkg/catalog"
)

// ErrDownloadFailed covers non-2xx responses and interrupted body streams.
// Download failures are fatal to the whole run.
var ErrDownloadFailed = errors.New("download failed")

// DownloadResult describes where a resource ended up on disk.
type DownloadResult struct {
	Path    string
	Bytes   int64
	Skipped bool
}

// Downloader fetches catalog resources to a local directory. A file already
// present at the deterministic destination path is not fetched again unless
// forced; that on-disk presence is the pipeline's only resumability signal.
type Downloader struct {
	dir    string
	client *http.Client
	pace   *pacer
	logger *slog.Logger
}

// NewDownloader creates a downloader writing into dir, pausing delay between
// network fetches. The yearly files run to multiple gigabytes, hence the
// generous client timeout.
func NewDownloader(dir string, delay time.Duration, logger *slog.Logger) *Downloader {
	return &Downloader{
		dir:    dir,
		client: &http.Client{Timeout: 30 * time.Minute},
		pace:   newPacer(delay),
		logger: logger,
	}
}

// Fetch downloads one resource, or reports the existing file when force is
// false. The body is streamed to a .part file and renamed on success, so an
// interrupted transfer never masquerades as a finished download.
func (d *Downloader) Fetch(ctx context.Context, res catalog.Resource, force bool) (DownloadResult, error) {
	dest := filepath.Join(d.dir, sanitizeFilename(res.Name))

	if !force {
		if fi, err := os.Stat(dest); err == nil {
			d.logger.Info("already downloaded, skipping", "file", res.Name, "bytes", fi.Size())
			return DownloadResult{Path: dest, Bytes: fi.Size(), Skipped: true}, nil
		}
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return DownloadResult{}, fmt.Errorf("create download dir: %w", err)
	}

	if err := d.pace.Wait(ctx); err != nil {
		return DownloadResult{}, err
	}

	d.logger.Info("downloading", "file", res.Name, "url", res.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, res.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DownloadResult{}, fmt.Errorf("%w: HTTP %d for %s", ErrDownloadFailed, resp.StatusCode, res.URL)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("create %s: %w", tmp, err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp)
		if copyErr == nil {
			copyErr = closeErr
		}
		return DownloadResult{}, fmt.Errorf("%w: stream %s: %v", ErrDownloadFailed, res.Name, copyErr)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return DownloadResult{}, fmt.Errorf("finalize %s: %w", dest, err)
	}

	d.logger.Info("downloaded", "file", res.Name, "bytes", n)
	return DownloadResult{Path: dest, Bytes: n}, nil
}

// sanitizeFilename keeps only the base name so a hostile resource name
// cannot escape the download directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "resource.dat"
	}
	return name
}
