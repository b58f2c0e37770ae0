package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("full_scan")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "full_scan" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err != nil {
		return
	}
	t.Fatalf("expected error for invalid level")
}

func TestConfigureReportLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("report", "text", "stdout", 0); err != nil {
		t.Fatalf("report level must configure: %v", err)
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	path := filepath.Join(t.TempDir(), "scan.log")
	if err := log.Configure("info", "json", path, 0); err != nil {
		t.Fatalf("file output must configure: %v", err)
	}
}

func TestWarnFeedsScanCounters(t *testing.T) {
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	before := atomic.LoadInt64(&warnsFull)
	log.WithComponent("full_scan").Warn("pair skipped")
	if atomic.LoadInt64(&warnsFull) != before+1 {
		t.Error("full scan warn not counted")
	}

	beforeActive := atomic.LoadInt64(&warnsActive)
	log.WithComponent("active_scan").Warn("pair retained")
	if atomic.LoadInt64(&warnsActive) != beforeActive+1 {
		t.Error("active scan warn not counted")
	}

	if !strings.Contains(buf.String(), "pair skipped") {
		t.Errorf("warn message not emitted: %s", buf.String())
	}
}
