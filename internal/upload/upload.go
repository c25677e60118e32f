package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/screenq/screenq/internal/fallback"
	"github.com/screenq/screenq/internal/logger"
)

const requestTimeout = 10 * time.Second

// Config holds the optional private storage target. The public hosts need
// no configuration.
type Config struct {
	Storage StorageConfig
}

// Uploader publishes screenshot files through a fallback chain of hosting
// services and returns a public URL for the first one that accepts the file.
type Uploader struct {
	client *http.Client
	store  *minioStore // nil when private storage is not configured

	// service endpoints, overridable in tests
	zeroBinURL  string
	fileIOURL   string
	tmpFilesURL string
}

// New creates an uploader. A misconfigured private store is logged and
// skipped; the public chain always remains available.
func New(cfg Config) *Uploader {
	u := &Uploader{
		client:      &http.Client{Timeout: requestTimeout},
		zeroBinURL:  "https://0x0.st",
		fileIOURL:   "https://file.io",
		tmpFilesURL: "https://tmpfiles.org/api/v1/upload",
	}

	if cfg.Storage.Enabled {
		store, err := newMinioStore(cfg.Storage)
		if err != nil {
			logger.Error("private storage disabled", "error", err)
		} else {
			u.store = store
		}
	}

	return u
}

// Init prepares the private storage bucket. No-op without a store; on
// failure the store is dropped and the public chain is used alone.
func (u *Uploader) Init(ctx context.Context) {
	if u.store == nil {
		return
	}

	if err := u.store.init(ctx); err != nil {
		logger.Error("private storage init failed", "error", err)
		u.store = nil
	}
}

// Upload tries each hosting service in order and returns the first public
// URL. Returns ("", false) when every service fails.
func (u *Uploader) Upload(ctx context.Context, path string) (string, bool) {
	var strategies []fallback.Strategy[string]

	if u.store != nil {
		strategies = append(strategies, fallback.Strategy[string]{
			Name: "minio",
			Run: func(ctx context.Context) (string, error) {
				return u.store.upload(ctx, path)
			},
		})
	}

	strategies = append(strategies,
		fallback.Strategy[string]{
			Name: "0x0.st",
			Run: func(ctx context.Context) (string, error) {
				return u.uploadZeroBin(ctx, path)
			},
		},
		fallback.Strategy[string]{
			Name: "file.io",
			Run: func(ctx context.Context) (string, error) {
				return u.uploadFileIO(ctx, path)
			},
		},
		fallback.Strategy[string]{
			Name: "tmpfiles.org",
			Run: func(ctx context.Context) (string, error) {
				return u.uploadTmpFiles(ctx, path)
			},
		},
	)

	return fallback.First(ctx, "upload", strategies)
}

// uploadZeroBin expects a bare URL as the response body.
func (u *Uploader) uploadZeroBin(ctx context.Context, path string) (string, error) {
	body, err := u.postFile(ctx, u.zeroBinURL, path)
	if err != nil {
		return "", err
	}

	url := strings.TrimSpace(string(body))
	if !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("unexpected response: %q", truncate(url, 80))
	}
	for _, word := range []string{"error", "failed", "invalid"} {
		if strings.Contains(strings.ToLower(url), word) {
			return "", fmt.Errorf("service rejected upload: %q", truncate(url, 80))
		}
	}

	return url, nil
}

// uploadFileIO expects JSON with a link field.
func (u *Uploader) uploadFileIO(ctx context.Context, path string) (string, error) {
	body, err := u.postFile(ctx, u.fileIOURL, path)
	if err != nil {
		return "", err
	}

	var resp struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}
	if resp.Link == "" || resp.Link == "null" {
		return "", fmt.Errorf("no link in response")
	}

	return resp.Link, nil
}

// uploadTmpFiles expects JSON with data.url; plain http is normalized to
// https.
func (u *Uploader) uploadTmpFiles(ctx context.Context, path string) (string, error) {
	body, err := u.postFile(ctx, u.tmpFilesURL, path)
	if err != nil {
		return "", err
	}

	var resp struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}

	url := resp.Data.URL
	if url == "" || url == "null" {
		return "", fmt.Errorf("no url in response")
	}
	if strings.HasPrefix(url, "http://") {
		url = "https://" + strings.TrimPrefix(url, "http://")
	}

	return url, nil
}

// postFile sends the file as a multipart form field named "file" and returns
// the response body of a 200 reply.
func (u *Uploader) postFile(ctx context.Context, url, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 120))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
