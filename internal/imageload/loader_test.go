package imageload

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(path, pngBytes(t, 64, 48), 0644); err != nil {
		t.Fatal(err)
	}

	frame, err := New(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", frame.Width, frame.Height)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := New(nil).LoadFile("/no/such/frame.png"); err == nil {
		t.Error("missing file should error")
	}
}

func TestLoadDispatchesOnScheme(t *testing.T) {
	body := pngBytes(t, 8, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	frame, err := New(nil).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if frame.Source != srv.URL {
		t.Errorf("source not recorded: %q", frame.Source)
	}
}

func TestFetchRetriesWithCacheBust(t *testing.T) {
	body := pngBytes(t, 16, 16)

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		if len(requests) < 3 {
			// Simulate a caching proxy serving a truncated response.
			w.Write(body[:20])
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	frame, err := New(nil).Fetch(context.Background(), srv.URL+"/snap?camera=3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if frame.Width != 16 {
		t.Errorf("decoded wrong frame: %dx%d", frame.Width, frame.Height)
	}

	if len(requests) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(requests))
	}
	if requests[0] != "camera=3" {
		t.Errorf("first attempt must use the URL unchanged, got %q", requests[0])
	}
	for i, q := range requests[1:] {
		vals, err := url.ParseQuery(q)
		if err != nil {
			t.Fatalf("attempt %d query: %v", i+2, err)
		}
		if vals.Get("cb") == "" {
			t.Errorf("attempt %d missing cache-bust parameter: %q", i+2, q)
		}
		if vals.Get("camera") != "3" {
			t.Errorf("attempt %d dropped original parameters: %q", i+2, q)
		}
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(nil).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestFetchHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The first retry waits 250ms, past the context deadline.
	_, err := New(nil).Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected context error")
	}
	if ctx.Err() == nil {
		t.Error("context should have expired")
	}
}
