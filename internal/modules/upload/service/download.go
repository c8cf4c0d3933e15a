package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/oops"
)

var videoExts = []string{".mp4", ".mov", ".m4v", ".webm", ".mkv", ".avi", ".flv"}

// File is a downloaded video waiting for upload.
type File struct {
	Path string
	// Name is the display name taken from the URL, without extension.
	Name string
	Size int64
}

// Remove deletes the downloaded file.
func (f File) Remove() error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HTTPDownloader streams videos into a directory over plain HTTP.
type HTTPDownloader struct {
	client   *http.Client
	dir      string
	attempts uint64
}

func NewHTTPDownloader(client *http.Client, dir string) *HTTPDownloader {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDownloader{client: client, dir: dir, attempts: 3}
}

// Download fetches rawURL into a new file. Server errors and dropped
// connections are retried with backoff; 4xx responses are not.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL string) (File, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return File{}, oops.With("download_dir", d.dir).Wrap(err)
	}
	name, ext := fileName(rawURL)

	var file File
	op := func() error {
		f, err := d.fetch(ctx, rawURL, ext)
		if err != nil {
			return err
		}
		file = f
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, d.attempts-1), ctx)); err != nil {
		return File{}, err
	}
	file.Name = name
	return file, nil
}

func (d *HTTPDownloader) fetch(ctx context.Context, rawURL, ext string) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return File{}, backoff.Permanent(oops.With("url", rawURL).Wrap(err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return File{}, backoff.Permanent(ctx.Err())
		}
		return File{}, oops.With("url", rawURL).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := oops.With("url", rawURL, "status", resp.StatusCode).Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode < 500 {
			return File{}, backoff.Permanent(err)
		}
		return File{}, err
	}

	f, err := os.CreateTemp(d.dir, "video-*"+ext)
	if err != nil {
		return File{}, backoff.Permanent(oops.With("download_dir", d.dir).Wrap(err))
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		if ctx.Err() != nil {
			return File{}, backoff.Permanent(ctx.Err())
		}
		return File{}, oops.With("url", rawURL).Wrap(err)
	}
	return File{Path: f.Name(), Size: n}, nil
}

// fileName derives a display name and extension from the last path
// segment of rawURL. Unknown extensions fall back to .mp4.
func fileName(rawURL string) (string, string) {
	base := ""
	if u, err := url.Parse(rawURL); err == nil {
		base = path.Base(u.Path)
	}
	if base == "" || base == "." || base == "/" {
		base = "video"
	}

	ext := strings.ToLower(filepath.Ext(base))
	name := strings.TrimSuffix(base, filepath.Ext(base))
	for _, known := range videoExts {
		if ext == known {
			return name, ext
		}
	}
	if name == "" {
		name = fmt.Sprintf("video_%d", time.Now().Unix())
	}
	return name, ".mp4"
}
