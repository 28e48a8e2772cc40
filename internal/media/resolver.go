package media

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultProbeTimeout = 7 * time.Second

// ErrNotImage marks a media reference that does not resolve to an
// image; callers degrade to a text rendering with the raw URL.
var ErrNotImage = errors.New("media reference is not an image")

// Asset is a resolved media reference: either a direct URL the
// gateway can fetch itself, or downloaded bytes for upload.
type Asset struct {
	DirectURL   string
	Data        []byte
	Filename    string
	ContentType string
}

// IsUpload reports whether the asset must be pushed as a binary
// upload instead of a fetchable URL.
func (a Asset) IsUpload() bool {
	return len(a.Data) > 0
}

// Resolver turns a hosted-file link into something the gateway
// accepts.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (Asset, error)
}

var (
	driveFilePattern = regexp.MustCompile(`https?://drive\.google\.com/file/d/([^/]+)`)
	driveOpenPattern = regexp.MustCompile(`https?://drive\.google\.com/(?:open|uc)\?(?:.*&)?id=([^&]+)`)
	confirmPattern   = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
)

// HTTPResolver probes media URLs over HTTP. Drive share links are
// downloaded through the export endpoint because the gateway refuses
// to follow their interstitial redirects; anything else is verified
// by a content-type probe and passed through as a direct URL.
type HTTPResolver struct {
	client *resty.Client
}

var _ Resolver = (*HTTPResolver)(nil)

func NewHTTPResolver(timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &HTTPResolver{client: client}
}

func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) (Asset, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return Asset{}, fmt.Errorf("media url is empty: %w", ErrNotImage)
	}

	if fileID, ok := driveFileID(trimmed); ok {
		return r.downloadDriveFile(ctx, fileID)
	}

	contentType, err := r.probeContentType(ctx, trimmed)
	if err != nil {
		return Asset{}, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Asset{}, fmt.Errorf("content-type %q: %w", contentType, ErrNotImage)
	}

	return Asset{DirectURL: trimmed, ContentType: contentType}, nil
}

func driveFileID(rawURL string) (string, bool) {
	if m := driveFilePattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	if m := driveOpenPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	return "", false
}

func (r *HTTPResolver) probeContentType(ctx context.Context, rawURL string) (string, error) {
	response, err := r.client.R().SetContext(ctx).Head(rawURL)
	if err != nil {
		return "", fmt.Errorf("media probe failed: %w", err)
	}
	if !response.IsSuccess() {
		return "", fmt.Errorf("media probe returned status %d: %w", response.StatusCode(), ErrNotImage)
	}
	return strings.ToLower(strings.TrimSpace(response.Header().Get("Content-Type"))), nil
}

func (r *HTTPResolver) downloadDriveFile(ctx context.Context, fileID string) (Asset, error) {
	downloadURL := fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
	return r.downloadDriveFileFrom(ctx, downloadURL, fileID)
}

func (r *HTTPResolver) downloadDriveFileFrom(ctx context.Context, downloadURL, fileID string) (Asset, error) {
	response, err := r.client.R().SetContext(ctx).Get(downloadURL)
	if err != nil {
		return Asset{}, fmt.Errorf("drive download failed: %w", err)
	}
	if !response.IsSuccess() {
		return Asset{}, fmt.Errorf("drive download returned status %d: %w", response.StatusCode(), ErrNotImage)
	}

	contentType := strings.ToLower(strings.TrimSpace(response.Header().Get("Content-Type")))

	// Large files answer with an interstitial HTML page carrying a
	// confirmation token instead of the bytes.
	if strings.HasPrefix(contentType, "text/html") {
		token := confirmToken(response)
		if token == "" {
			return Asset{}, fmt.Errorf("drive file %s needs a confirmation token that was not issued: %w", fileID, ErrNotImage)
		}

		confirmedURL := fmt.Sprintf("%s&confirm=%s", downloadURL, token)
		response, err = r.client.R().SetContext(ctx).Get(confirmedURL)
		if err != nil {
			return Asset{}, fmt.Errorf("drive confirmed download failed: %w", err)
		}
		if !response.IsSuccess() {
			return Asset{}, fmt.Errorf("drive confirmed download returned status %d: %w", response.StatusCode(), ErrNotImage)
		}
		contentType = strings.ToLower(strings.TrimSpace(response.Header().Get("Content-Type")))
		if strings.HasPrefix(contentType, "text/html") {
			return Asset{}, fmt.Errorf("drive file %s still behind interstitial page: %w", fileID, ErrNotImage)
		}
	}

	return Asset{
		Data:        response.Body(),
		Filename:    fileID + ".jpg",
		ContentType: contentType,
	}, nil
}

func confirmToken(response *resty.Response) string {
	for _, cookie := range response.Cookies() {
		if strings.HasPrefix(cookie.Name, "download_warning") && cookie.Value != "" {
			return cookie.Value
		}
	}
	if m := confirmPattern.FindSubmatch(response.Body()); m != nil {
		return string(m[1])
	}
	return ""
}
