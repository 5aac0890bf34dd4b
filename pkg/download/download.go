package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// Options configures the download behavior
type Options struct {
	MaxBytes  int64         // Maximum bytes written to disk (0 = no limit)
	Timeout   time.Duration // Wall-clock budget for the whole download
	UserAgent string        // User agent string
}

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		MaxBytes:  500 * 1024 * 1024,
		Timeout:   15 * time.Minute,
		UserAgent: "podlistener/1.0",
	}
}

// Result contains information about a successful download
type Result struct {
	FilePath     string
	ContentType  string
	BytesWritten int64
}

// Downloader streams episode audio to local staging files.
type Downloader struct {
	client  *http.Client
	options Options
}

// NewDownloader creates a new downloader with the given options. Redirects are
// followed by the default client policy.
func NewDownloader(options Options) *Downloader {
	return &Downloader{
		client: &http.Client{
			// No client-level timeout: the wall clock is enforced through the
			// request context so a slow stream fails with the cap's error.
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // don't compress audio
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// DownloadToFile streams url to destPath with chunked writes, enforcing both
// the byte cap and the wall-clock cap. A violated cap yields a
// RESOURCE_EXHAUSTED error and removes the partial file.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string) (*Result, error) {
	log.Printf("[DEBUG] Starting download from %s to %s", url, destPath)

	start := time.Now()
	if d.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.options.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, d.timeExhausted(start)
		}
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, apperrors.NewStatusError(resp, "")
	}

	if d.options.MaxBytes > 0 && resp.ContentLength > d.options.MaxBytes {
		return nil, apperrors.Newf(apperrors.ErrCodeResourceExhausted,
			"download size %d exceeds cap %d bytes", resp.ContentLength, d.options.MaxBytes)
	}

	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audio dir: %w", err)
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := d.copyCapped(ctx, out, resp.Body, start)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}

	log.Printf("[DEBUG] Downloaded %d bytes to %s", written, destPath)

	return &Result{
		FilePath:     destPath,
		ContentType:  resp.Header.Get("Content-Type"),
		BytesWritten: written,
	}, nil
}

// copyCapped copies src to dst in chunks, checking the byte cap after each
// write and surfacing the wall-clock cap when the context dies mid-stream.
func (d *Downloader) copyCapped(ctx context.Context, dst io.Writer, src io.Reader, start time.Time) (int64, error) {
	var written int64
	buf := make([]byte, 32*1024)

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, fmt.Errorf("failed to write audio: %w", writeErr)
			}
			if d.options.MaxBytes > 0 && written > d.options.MaxBytes {
				return written, apperrors.Newf(apperrors.ErrCodeResourceExhausted,
					"download exceeded %d byte cap", d.options.MaxBytes)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return written, d.timeExhausted(start)
			}
			return written, fmt.Errorf("failed to read audio stream: %w", readErr)
		}
	}
}

func (d *Downloader) timeExhausted(start time.Time) error {
	return apperrors.Newf(apperrors.ErrCodeResourceExhausted,
		"download exceeded %s wall clock (ran %s)", d.options.Timeout, time.Since(start).Round(time.Second))
}

// Cleanup removes a staged audio file; a missing file is not an error.
func Cleanup(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
