package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	for _, dir := range []string{"library", "collection", "logs", "state"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	content := fmt.Sprintf(`[paths]
library_dir = %q
collection_dir = %q
log_dir = %q
state_dir = %q
`,
		filepath.Join(base, "library"),
		filepath.Join(base, "collection"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output missing target path: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestScanCommandCountsCandidates(t *testing.T) {
	cfgPath := writeTestConfig(t)
	lib := filepath.Join(filepath.Dir(cfgPath), "library")
	for _, name := range []string{"a.wav", "b.flac", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(lib, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	out, err := runCommand(t, "--config", cfgPath, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out, "2 audio files, 2 need conversion") {
		t.Fatalf("scan output = %q", out)
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No conversions recorded") {
		t.Fatalf("history output = %q", out)
	}
}

func TestBatchCommandNothingToConvert(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "batch")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !strings.Contains(out, "Nothing to convert") {
		t.Fatalf("batch output = %q", out)
	}
}
