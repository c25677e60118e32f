package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "screenshot_1700000000.png")
	if err := os.WriteFile(path, []byte("not-really-a-png"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func newTestUploader(zeroBin, fileIO, tmpFiles string) *Uploader {
	u := New(Config{})
	u.zeroBinURL = zeroBin
	u.fileIOURL = fileIO
	u.tmpFilesURL = tmpFiles
	return u
}

// failing is an endpoint that always reports a server error.
func failing(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadZeroBinBareURL(t *testing.T) {
	var gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err == nil {
			gotField = "file"
		}
		w.Write([]byte("https://0x0.st/abcd.png\n"))
	}))
	t.Cleanup(srv.Close)

	u := newTestUploader(srv.URL, failing(t).URL, failing(t).URL)

	url, ok := u.Upload(context.Background(), testFile(t))
	if !ok {
		t.Fatal("expected upload to succeed")
	}
	if url != "https://0x0.st/abcd.png" {
		t.Errorf("unexpected url: %q", url)
	}
	if gotField != "file" {
		t.Error("expected a multipart field named file")
	}
}

func TestUploadZeroBinRejectsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("https://0x0.st/ERROR: file too large"))
	}))
	t.Cleanup(srv.Close)

	u := newTestUploader(srv.URL, failing(t).URL, failing(t).URL)

	if _, ok := u.Upload(context.Background(), testFile(t)); ok {
		t.Error("expected error body to be rejected")
	}
}

func TestUploadFileIOLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"link":"https://file.io/xyz"}`))
	}))
	t.Cleanup(srv.Close)

	u := newTestUploader(failing(t).URL, srv.URL, failing(t).URL)

	url, ok := u.Upload(context.Background(), testFile(t))
	if !ok {
		t.Fatal("expected upload to succeed")
	}
	if url != "https://file.io/xyz" {
		t.Errorf("unexpected url: %q", url)
	}
}

func TestUploadTmpFilesNormalizesScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"url":"http://tmpfiles.org/123/shot.png"}}`))
	}))
	t.Cleanup(srv.Close)

	u := newTestUploader(failing(t).URL, failing(t).URL, srv.URL)

	url, ok := u.Upload(context.Background(), testFile(t))
	if !ok {
		t.Fatal("expected upload to succeed")
	}
	if url != "https://tmpfiles.org/123/shot.png" {
		t.Errorf("expected https normalization, got %q", url)
	}
}

func TestUploadFallsThroughInOrder(t *testing.T) {
	var order []string

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "0x0.st")
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(first.Close)

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "file.io")
		w.Write([]byte(`{"link":"https://file.io/ok"}`))
	}))
	t.Cleanup(second.Close)

	third := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "tmpfiles.org")
		w.Write([]byte(`{"data":{"url":"https://tmpfiles.org/x"}}`))
	}))
	t.Cleanup(third.Close)

	u := newTestUploader(first.URL, second.URL, third.URL)

	url, ok := u.Upload(context.Background(), testFile(t))
	if !ok {
		t.Fatal("expected upload to succeed")
	}
	if url != "https://file.io/ok" {
		t.Errorf("unexpected url: %q", url)
	}
	if len(order) != 2 || order[0] != "0x0.st" || order[1] != "file.io" {
		t.Errorf("unexpected invocation order: %v", order)
	}
}

func TestUploadAllServicesFail(t *testing.T) {
	u := newTestUploader(failing(t).URL, failing(t).URL, failing(t).URL)

	url, ok := u.Upload(context.Background(), testFile(t))
	if ok {
		t.Error("expected exhausted chain to fail")
	}
	if url != "" {
		t.Errorf("expected empty url, got %q", url)
	}
}

func TestUploadMissingFile(t *testing.T) {
	u := newTestUploader(failing(t).URL, failing(t).URL, failing(t).URL)

	if _, ok := u.Upload(context.Background(), "/nonexistent/file.png"); ok {
		t.Error("expected failure for a missing file")
	}
}

func TestFileIOMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	t.Cleanup(srv.Close)

	u := newTestUploader(failing(t).URL, srv.URL, failing(t).URL)

	if _, ok := u.Upload(context.Background(), testFile(t)); ok {
		t.Error("expected malformed JSON to be rejected")
	}
}
