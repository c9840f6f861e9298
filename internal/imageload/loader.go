// Package imageload fetches and decodes camera frames from files or HTTP
// endpoints. HTTP loads retry with cache-busting suffixes because the camera
// rig's snapshot endpoint sits behind a caching proxy that can serve stale
// or truncated responses.
package imageload

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	_ "golang.org/x/image/tiff"
)

const (
	maxAttempts  = 3
	retryBackoff = 250 * time.Millisecond
)

// Frame is a decoded camera frame with its natural pixel dimensions.
type Frame struct {
	Image  image.Image
	Width  int
	Height int
	Source string
}

// Loader fetches frames. A zero Loader uses http.DefaultClient.
type Loader struct {
	Client *http.Client
	log    *logrus.Entry
}

// New creates a loader with a dedicated HTTP client.
func New(log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	return &Loader{
		Client: &http.Client{Timeout: 10 * time.Second},
		log:    log.WithField("component", "imageload"),
	}
}

// Load fetches and decodes a frame from a file path or http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (*Frame, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.Fetch(ctx, source)
	}
	return l.LoadFile(source)
}

// LoadFile decodes a frame from a local file.
func (l *Loader) LoadFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	b := img.Bounds()
	l.log.WithFields(logrus.Fields{"path": path, "format": format, "w": b.Dx(), "h": b.Dy()}).Debug("frame loaded")
	return &Frame{Image: img, Width: b.Dx(), Height: b.Dy(), Source: path}, nil
}

// Fetch downloads and decodes a frame over HTTP. Up to 3 attempts are made;
// each retry appends a cache-busting query parameter and waits a growing
// backoff. After exhaustion the tile stays in its failed state.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (*Frame, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * retryBackoff):
			}
		}

		img, err := l.fetchOnce(ctx, client, cacheBust(rawURL, attempt))
		if err == nil {
			b := img.Bounds()
			return &Frame{Image: img, Width: b.Dx(), Height: b.Dy(), Source: rawURL}, nil
		}
		lastErr = err
		l.log.WithError(err).WithFields(logrus.Fields{
			"url": rawURL, "attempt": attempt,
		}).Warn("frame fetch failed")
	}
	return nil, fmt.Errorf("fetching %s after %d attempts: %w", rawURL, maxAttempts, lastErr)
}

func (l *Loader) fetchOnce(ctx context.Context, client *http.Client, u string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return img, nil
}

// cacheBust appends a retry-specific query parameter so intermediate caches
// cannot serve the same bad response twice. The first attempt uses the URL
// unchanged.
func cacheBust(rawURL string, attempt int) string {
	if attempt <= 1 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("cb", fmt.Sprintf("%d-%d", time.Now().UnixMilli(), attempt))
	u.RawQuery = q.Encode()
	return u.String()
}
