package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spicierbot/spicier/pkg/config"
)

func TestRotatesLatestLog(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	if err := os.WriteFile(filepath.Join(dir, "24-03-09-0.log"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, latestLog), []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := openLatest(dir, now)
	if err != nil {
		t.Fatalf("openLatest: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "24-03-09-1.log"))
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	if string(data) != "previous run" {
		t.Errorf("rotated content = %q", data)
	}
	info, err := os.Stat(filepath.Join(dir, latestLog))
	if err != nil {
		t.Fatalf("latest.log missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("latest.log size = %d, want 0", info.Size())
	}
}

func TestOpenLatestWithoutPrevious(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f, err := openLatest(dir, time.Now())
	if err != nil {
		t.Fatalf("openLatest: %v", err)
	}
	f.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != latestLog {
		t.Errorf("entries = %v, want only latest.log", entries)
	}
}

func TestFileGetsDebugConsoleDoesNot(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := New(config.LogConfig{Level: "info", File: true, Dir: dir}, &console)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Logger.Debug("hidden from console", "k", "v")
	l.Logger.Info("shown everywhere")
	l.Library.Info("library chatter")
	l.Library.Warn("library warning")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(console.String(), "hidden from console") {
		t.Error("debug record reached the console at info level")
	}
	if !strings.Contains(console.String(), "shown everywhere") {
		t.Error("info record missing from console")
	}
	if strings.Contains(console.String(), "library chatter") {
		t.Error("library info reached the console")
	}

	data, err := os.ReadFile(filepath.Join(dir, latestLog))
	if err != nil {
		t.Fatal(err)
	}
	file := string(data)
	if !strings.Contains(file, "hidden from console") {
		t.Error("debug record missing from file")
	}
	if !strings.Contains(file, "library warning") {
		t.Error("library warning missing from file")
	}
	if strings.Contains(file, "library chatter") {
		t.Error("library info reached the file")
	}
}

func TestSetDebug(t *testing.T) {
	var console bytes.Buffer
	l, err := New(config.LogConfig{Level: "info"}, &console)
	if err != nil {
		t.Fatal(err)
	}
	if l.Debug() {
		t.Fatal("Debug() = true at info level")
	}

	l.SetDebug(true)
	l.Logger.Debug("now visible")
	if !l.Debug() || !strings.Contains(console.String(), "now visible") {
		t.Error("SetDebug(true) did not enable debug output")
	}

	l.SetDebug(false)
	if l.Debug() {
		t.Error("SetDebug(false) left debug on")
	}
}
