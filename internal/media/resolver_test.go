package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResolveDirectImageURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Type", "image/png")
	}))
	defer server.Close()

	resolver := NewHTTPResolver(time.Second)
	asset, err := resolver.Resolve(context.Background(), server.URL+"/pic.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if asset.IsUpload() {
		t.Fatal("direct image should not require upload")
	}
	if asset.DirectURL != server.URL+"/pic.png" {
		t.Fatalf("DirectURL = %q", asset.DirectURL)
	}
	if asset.ContentType != "image/png" {
		t.Fatalf("ContentType = %q, want image/png", asset.ContentType)
	}
}

func TestResolveNonImageContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}))
	defer server.Close()

	resolver := NewHTTPResolver(time.Second)
	_, err := resolver.Resolve(context.Background(), server.URL+"/page")
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("Resolve() error = %v, want ErrNotImage", err)
	}
}

func TestResolveEmptyURL(t *testing.T) {
	t.Parallel()

	resolver := NewHTTPResolver(time.Second)
	_, err := resolver.Resolve(context.Background(), "  ")
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("Resolve() error = %v, want ErrNotImage", err)
	}
}

func TestDriveFileIDPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{
			name:   "file share link",
			url:    "https://drive.google.com/file/d/abc123XYZ/view?usp=sharing",
			wantID: "abc123XYZ",
			wantOK: true,
		},
		{
			name:   "open link",
			url:    "https://drive.google.com/open?id=abc123XYZ",
			wantID: "abc123XYZ",
			wantOK: true,
		},
		{
			name:   "uc link",
			url:    "https://drive.google.com/uc?export=download&id=abc123XYZ",
			wantID: "abc123XYZ",
			wantOK: true,
		},
		{
			name:   "plain url",
			url:    "https://example.com/photo.jpg",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, ok := driveFileID(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("driveFileID() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Fatalf("driveFileID() = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestConfirmTokenFromBody(t *testing.T) {
	t.Parallel()

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<a href="/uc?export=download&confirm=tok-42&id=f1">Download anyway</a>`))
			return
		}
		if got := r.URL.Query().Get("confirm"); got != "tok-42" {
			t.Errorf("confirm = %q, want tok-42", got)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	defer server.Close()

	resolver := NewHTTPResolver(time.Second)
	asset, err := resolver.downloadDriveFileFrom(context.Background(), server.URL+"/uc?export=download&id=f1", "f1")
	if err != nil {
		t.Fatalf("download error = %v", err)
	}
	if !asset.IsUpload() {
		t.Fatal("drive download should produce an upload asset")
	}
	if len(asset.Data) != 3 {
		t.Fatalf("len(Data) = %d, want 3", len(asset.Data))
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (interstitial then confirmed)", calls)
	}
}
