package kernel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/huangzesen/heliospice/internal/logging"
	"github.com/huangzesen/heliospice/internal/telemetry"
)

// DefaultDownloadTimeout bounds a single kernel fetch. Planetary SPKs
// run to hundreds of MB, so this is generous.
const DefaultDownloadTimeout = 5 * time.Minute

// Downloader fetches kernel files into a local cache directory.
type Downloader struct {
	client  *http.Client
	timeout time.Duration
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithTimeout sets the per-download timeout.
func WithTimeout(d time.Duration) DownloaderOption {
	return func(dl *Downloader) {
		dl.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(dl *Downloader) {
		dl.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) DownloaderOption {
	return func(dl *Downloader) {
		dl.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) DownloaderOption {
	return func(dl *Downloader) {
		dl.metrics = m
	}
}

// NewDownloader creates a kernel downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	dl := &Downloader{
		timeout: DefaultDownloadTimeout,
		log:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(dl)
	}

	if dl.client == nil {
		dl.client = &http.Client{
			Timeout: dl.timeout,
		}
	}

	return dl
}

// Fetch downloads url into dir/filename unless a non-empty cached copy
// already exists. The file is written to a ".tmp" sibling and renamed
// into place, so a partial download never looks like a cached kernel.
func (dl *Downloader) Fetch(ctx context.Context, url, dir, filename string) (string, error) {
	localPath := filepath.Join(dir, filename)
	if info, err := os.Stat(localPath); err == nil && info.Size() > 0 {
		dl.log.Debugf("kernel cached: %s", filename)
		return localPath, nil
	}

	dl.log.Infof("downloading kernel: %s", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		dl.metrics.RecordDownloadFailure()
		return "", fmt.Errorf("%w: %s from %s: %w", ErrDownload, filename, url, err)
	}
	req.Header.Set("User-Agent", "heliospice/1.0 (SPICE kernel cache)")

	resp, err := dl.client.Do(req)
	if err != nil {
		dl.metrics.RecordDownloadFailure()
		return "", fmt.Errorf("%w: %s from %s: %w", ErrDownload, filename, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		dl.metrics.RecordDownloadFailure()
		return "", fmt.Errorf("%w: %s from %s: HTTP %d", ErrDownload, filename, url, resp.StatusCode)
	}

	size, err := dl.writeAtomic(localPath, resp.Body)
	if err != nil {
		dl.metrics.RecordDownloadFailure()
		return "", fmt.Errorf("%w: %s from %s: %w", ErrDownload, filename, url, err)
	}

	dl.metrics.RecordDownload(size)
	dl.log.Infof("downloaded kernel: %s (%d bytes)", filename, size)
	return localPath, nil
}

func (dl *Downloader) writeAtomic(localPath string, body io.Reader) (int64, error) {
	tmpPath := localPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}

	size, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return size, nil
}
