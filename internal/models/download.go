package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audio-transcriber/internal/domain"
)

// downloadChunkSize is the copy granularity; cancellation is honored at
// this boundary.
const downloadChunkSize = 64 * 1024

// defaultReportInterval bounds how often progress is emitted so listeners
// are not flooded on fast links.
const defaultReportInterval = 200 * time.Millisecond

// DownloadProgress is one throttled progress report for a model download.
// TotalBytes is 0 when the server did not declare a size; Percentage is
// meaningful only when TotalBytes is known.
type DownloadProgress struct {
	ModelID         string        `json:"modelId"`
	Percentage      int           `json:"percentage"`
	BytesDownloaded int64         `json:"bytesDownloaded"`
	TotalBytes      int64         `json:"totalBytes"`
	Elapsed         time.Duration `json:"elapsed"`
}

// DownloadError reports a non-success HTTP response.
type DownloadError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error formats the failure for logs and UI.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: %s (%s)", e.Status, e.URL)
}

// Downloader streams model assets to disk with progress reporting,
// cooperative cancellation, and post-download integrity verification.
type Downloader struct {
	client         *http.Client
	reportInterval time.Duration
}

// NewDownloader creates a downloader using the default HTTP client.
func NewDownloader() *Downloader {
	return &Downloader{
		client:         http.DefaultClient,
		reportInterval: defaultReportInterval,
	}
}

// NewDownloaderForTests creates a downloader with injectable client and
// report throttling.
func NewDownloaderForTests(client *http.Client, reportInterval time.Duration) *Downloader {
	return &Downloader{client: client, reportInterval: reportInterval}
}

// Download streams the asset to its destination path. The file is written
// directly at the final path; success is only reported after the full stream
// and, when a checksum is on record, integrity verification complete. On
// cancellation, verification failure, or any error the partial file is
// removed so a corrupt asset is never left looking present.
func (d *Downloader) Download(ctx context.Context, info domain.DownloadInfo, onProgress func(DownloadProgress)) error {
	if err := os.MkdirAll(filepath.Dir(info.DestinationPath), 0o755); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ErrDownloadCancelled
		}
		return fmt.Errorf("open download stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DownloadError{
			URL:        info.DownloadURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	out, err := os.Create(info.DestinationPath)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(info.DestinationPath)
		}
	}()

	started := time.Now()
	lastReport := started
	var downloaded int64
	buf := make([]byte, downloadChunkSize)

	emit := func() {
		if onProgress == nil {
			return
		}
		p := DownloadProgress{
			ModelID:         info.ModelID,
			BytesDownloaded: downloaded,
			TotalBytes:      total,
			Elapsed:         time.Since(started),
		}
		if total > 0 {
			p.Percentage = int(downloaded * 100 / total)
		}
		onProgress(p)
		lastReport = time.Now()
	}

	for {
		select {
		case <-ctx.Done():
			return domain.ErrDownloadCancelled
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write destination file: %w", writeErr)
			}
			downloaded += int64(n)
			if time.Since(lastReport) >= d.reportInterval {
				emit()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return domain.ErrDownloadCancelled
			}
			return fmt.Errorf("read download stream: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("flush destination file: %w", err)
	}

	if info.SHA256 != "" {
		sum, err := hashFileSHA256(os.Open, info.DestinationPath)
		if err != nil {
			return fmt.Errorf("checksum downloaded file: %w", err)
		}
		if !strings.EqualFold(sum, info.SHA256) {
			return fmt.Errorf("%w: %s", domain.ErrIntegrityCheckFailed, info.ModelID)
		}
	}

	success = true
	emit()
	return nil
}

// IsCancelled reports whether a download error represents user cancellation
// rather than failure.
func IsCancelled(err error) bool {
	return errors.Is(err, domain.ErrDownloadCancelled) || errors.Is(err, context.Canceled)
}
