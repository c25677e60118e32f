package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	rec := Record{
		Timestamp: time.Now().Truncate(time.Second),
		Context: map[string]any{
			"selected_text": "some selection",
			"image_url":     "https://img.example/shot.png",
		},
	}

	if err := store.Save("1700000000", rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load("1700000000")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Context["selected_text"] != "some selection" {
		t.Errorf("unexpected context: %v", loaded.Context)
	}
	if loaded.Context["image_url"] != "https://img.example/shot.png" {
		t.Errorf("unexpected image url: %v", loaded.Context["image_url"])
	}
	if loaded.Messages == nil || len(loaded.Messages) != 0 {
		t.Errorf("expected empty message log, got %v", loaded.Messages)
	}
}

func TestLoadNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwritesWholesale(t *testing.T) {
	store := NewStore(t.TempDir())

	first := Record{Timestamp: time.Now(), Context: map[string]any{"a": "1", "b": "2"}}
	if err := store.Save("s", first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	second := Record{Timestamp: time.Now(), Context: map[string]any{"a": "changed"}}
	if err := store.Save("s", second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load("s")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Context["a"] != "changed" {
		t.Errorf("expected overwritten value, got %v", loaded.Context["a"])
	}
	if _, ok := loaded.Context["b"]; ok {
		t.Error("expected wholesale overwrite, old key survived")
	}
}

func TestSaveFileNaming(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save("1712345678", Record{Timestamp: time.Now()}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "session_1712345678.json")); err != nil {
		t.Errorf("expected session_<id>.json naming: %v", err)
	}
}

func TestSaveMessagesSerializeAsEmptyList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save("s", Record{Timestamp: time.Now()}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session_s.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	if strings.Contains(string(data), `"messages": null`) {
		t.Error("messages must serialize as [], not null")
	}
}

func TestSaveToMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope", "nested"))

	if err := store.Save("s", Record{Timestamp: time.Now()}); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
