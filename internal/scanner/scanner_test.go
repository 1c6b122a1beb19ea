package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"resound/internal/logging"
	"resound/internal/services"
	"resound/internal/testsupport"
)

type staticLookup map[string]struct{}

func (l staticLookup) ConvertedSet(context.Context) (map[string]struct{}, error) {
	return l, nil
}

func writeFile(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestScanDiscoversAudioFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := cfg.Paths.LibraryDir

	wav := writeFile(t, filepath.Join(lib, "album", "track.wav"))
	flac := writeFile(t, filepath.Join(lib, "track.flac"))
	writeFile(t, filepath.Join(lib, "cover.jpg"))
	writeFile(t, filepath.Join(lib, ".hidden", "secret.wav"))

	s := New(cfg, nil, logging.NewNop())
	cands, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("found %d candidates, want 2: %+v", len(cands), cands)
	}
	paths := map[string]bool{}
	for _, cand := range cands {
		paths[cand.Path] = cand.NeedsConversion
	}
	if needs, ok := paths[wav]; !ok || !needs {
		t.Fatalf("wav candidate missing or not flagged: %v", paths)
	}
	if needs, ok := paths[flac]; !ok || !needs {
		t.Fatalf("flac candidate missing or not flagged: %v", paths)
	}
}

func TestScanSkipsTargetFormatAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := cfg.Paths.LibraryDir

	converted := writeFile(t, filepath.Join(lib, "done.wav"))
	fresh := writeFile(t, filepath.Join(lib, "fresh.wav"))
	already := writeFile(t, filepath.Join(lib, "native.opus"))

	s := New(cfg, staticLookup{converted: {}}, logging.NewNop())
	cands, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	byPath := map[string]bool{}
	for _, cand := range cands {
		byPath[cand.Path] = cand.NeedsConversion
	}
	if len(byPath) != 3 {
		t.Fatalf("found %d candidates, want all 3 listed", len(byPath))
	}
	if byPath[converted] {
		t.Fatal("previously converted file flagged as needing conversion")
	}
	if !byPath[fresh] {
		t.Fatal("fresh file not flagged as needing conversion")
	}
	if byPath[already] {
		t.Fatal("file already in the target format flagged as needing conversion")
	}
}

func TestScanOrdersNumerically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := cfg.Paths.LibraryDir

	writeFile(t, filepath.Join(lib, "track 10.wav"))
	writeFile(t, filepath.Join(lib, "track 2.wav"))
	writeFile(t, filepath.Join(lib, "track 1.wav"))

	s := New(cfg, nil, logging.NewNop())
	cands, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("found %d candidates, want 3", len(cands))
	}
	want := []string{"track 1.wav", "track 2.wav", "track 10.wav"}
	for i, name := range want {
		if got := filepath.Base(cands[i].Path); got != name {
			t.Fatalf("position %d = %q, want %q", i, got, name)
		}
	}
}

func TestScanMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := New(cfg, nil, logging.NewNop())
	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCandidateSingleFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeFile(t, filepath.Join(cfg.Paths.LibraryDir, "one.mp3"))

	s := New(cfg, nil, logging.NewNop())
	cand, err := s.Candidate(context.Background(), path)
	if err != nil {
		t.Fatalf("Candidate: %v", err)
	}
	if cand.ID != path || !cand.NeedsConversion {
		t.Fatalf("candidate = %+v", cand)
	}

	if _, err := s.Candidate(context.Background(), filepath.Join(cfg.Paths.LibraryDir, "missing.mp3")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing file err = %v, want ErrNotFound", err)
	}

	notes := writeFile(t, filepath.Join(cfg.Paths.LibraryDir, "notes.txt"))
	if _, err := s.Candidate(context.Background(), notes); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("non-audio err = %v, want ErrValidation", err)
	}
}
