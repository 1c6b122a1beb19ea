package encoding_test

import (
	"os"
	"path/filepath"
	"testing"

	"resound/internal/config"
	"resound/internal/encoding"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.CollectionDir = filepath.Join(base, "collection")
	return &cfg
}

func TestResolveOutputNextToSource(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(cfg.Paths.LibraryDir, "artist", "track.mp3")

	out, err := encoding.ResolveOutput(src, "opus", encoding.Policy{Destination: config.DestinationNextToSource}, cfg)
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "artist", "track.opus")
	if out != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

func TestResolveOutputCollectionMirrorsLibrary(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(cfg.Paths.LibraryDir, "artist", "album", "track.wav")

	out, err := encoding.ResolveOutput(src, "opus", encoding.Policy{Destination: config.DestinationCollection}, cfg)
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(cfg.Paths.CollectionDir, "artist", "album", "track.opus")
	if out != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

func TestResolveOutputCollectionOutsideLibraryFlattens(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "elsewhere", "track.flac")

	out, err := encoding.ResolveOutput(src, "mp3", encoding.Policy{Destination: config.DestinationCollection}, cfg)
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(cfg.Paths.CollectionDir, "track.mp3")
	if out != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

func TestFinalizeDeletesOriginal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := encoding.Finalize(src, filepath.Join(dir, "track.opus"), encoding.Policy{DeleteOriginal: true}); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected original removed")
	}
}

func TestFinalizeKeepsOriginalByDefault(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := encoding.Finalize(src, filepath.Join(dir, "track.opus"), encoding.Policy{}); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected original kept: %v", err)
	}
}
