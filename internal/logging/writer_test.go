package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func TestRecordLine(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.Local)

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "connected window",
			rec: Record{
				Timestamp:  ts,
				Connected:  true,
				LossPct:    0.0,
				Sent:       10,
				Received:   10,
				Lost:       0,
				MinMs:      fp(9.2),
				MaxMs:      fp(12.9),
				AvgMs:      fp(10.6),
				JitterMs:   1.23,
				DurationMs: 123.42,
				Results:    []string{"9", "10", "12"},
			},
			want: "2025-03-14 09:26:53.589793 - Connected: 0.0% packet loss (Sent: 10, Received: 10, Lost: 0) Min: 9ms, Max: 12ms, Avg: 10ms | Jitter: 1.2ms, Duration: 123.4ms | Ping Results: [9, 10, 12]",
		},
		{
			name: "disconnected window omits latency clause",
			rec: Record{
				Timestamp:  ts,
				Connected:  false,
				LossPct:    100.0,
				Sent:       2,
				Received:   0,
				Lost:       2,
				JitterMs:   0,
				DurationMs: 2000.0,
				Results:    []string{"timeout", "timeout"},
			},
			want: "2025-03-14 09:26:53.589793 - Disconnected: 100.0% packet loss (Sent: 2, Received: 0, Lost: 2) | Jitter: 0.0ms, Duration: 2000.0ms | Ping Results: [timeout, timeout]",
		},
		{
			name: "partial loss with error suffix",
			rec: Record{
				Timestamp:  ts,
				Connected:  true,
				LossPct:    50.0,
				Sent:       4,
				Received:   2,
				Lost:       2,
				MinMs:      fp(20),
				MaxMs:      fp(24),
				AvgMs:      fp(22),
				JitterMs:   4.0,
				DurationMs: 2100.5,
				Results:    []string{"20", "timeout", "24", "timeout"},
				Error:      "dns health check failed",
			},
			want: "2025-03-14 09:26:53.589793 - Connected: 50.0% packet loss (Sent: 4, Received: 2, Lost: 2) Min: 20ms, Max: 24ms, Avg: 22ms | Jitter: 4.0ms, Duration: 2100.5ms | Ping Results: [20, timeout, 24, timeout] | Error: dns health check failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Line(); got != tt.want {
				t.Errorf("line mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestAppendRouting(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		AllPath:     filepath.Join(dir, "all_attempts.log"),
		FailurePath: filepath.Join(dir, "lost_connection.log"),
		MaxMB:       1,
		MaxBackups:  1,
	})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	clean := Record{
		Timestamp: time.Now(),
		Connected: true,
		Sent:      2, Received: 2,
		MinMs: fp(9), MaxMs: fp(10), AvgMs: fp(9.5),
		Results: []string{"9", "10"},
	}
	lossy := Record{
		Timestamp: time.Now(),
		Connected: false,
		LossPct:   100.0,
		Sent:      2, Received: 0, Lost: 2,
		Results: []string{"timeout", "timeout"},
	}

	for _, rec := range []Record{clean, lossy} {
		if err := w.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all := readLines(t, filepath.Join(dir, "all_attempts.log"))
	if len(all) != 2 {
		t.Fatalf("all-attempts log has %d lines, want 2", len(all))
	}

	failures := readLines(t, filepath.Join(dir, "lost_connection.log"))
	if len(failures) != 1 {
		t.Fatalf("failure log has %d lines, want 1", len(failures))
	}
	if !strings.Contains(failures[0], "Disconnected") {
		t.Errorf("failure log holds the wrong record: %s", failures[0])
	}
	if failures[0] != all[1] {
		t.Errorf("failure line must be byte-identical to its all-attempts copy")
	}
}

func TestRotationPreservesRecords(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		AllPath:     filepath.Join(dir, "all.log"),
		FailurePath: filepath.Join(dir, "fail.log"),
		MaxMB:       1,
		MaxBackups:  2,
	})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	// Pad the results list so one line is about 125KB and the 1MB
	// threshold is crossed after a handful of appends.
	bulk := make([]string, 25000)
	for i := range bulk {
		bulk[i] = "100"
	}

	const total = 12
	for i := 0; i < total; i++ {
		rec := Record{
			Timestamp: time.Now(),
			Connected: true,
			Sent:      1, Received: 1,
			MinMs: fp(9), MaxMs: fp(9), AvgMs: fp(9),
			Results: bulk,
		}
		if err := w.Append(rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	var lines, backups int
	for _, e := range entries {
		if e.Name() == "fail.log" {
			continue
		}
		lines += len(readLines(t, filepath.Join(dir, e.Name())))
		if e.Name() != "all.log" {
			backups++
		}
	}

	if backups == 0 {
		t.Fatalf("threshold crossed but no rotated file appeared")
	}
	// Every appended record survives exactly once across the active
	// file and its rotations.
	if lines != total {
		t.Errorf("lines across all files = %d, want %d", lines, total)
	}
}

func TestAppendRoutesErrorRecords(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		AllPath:     filepath.Join(dir, "all.log"),
		FailurePath: filepath.Join(dir, "fail.log"),
		MaxMB:       1,
		MaxBackups:  1,
	})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	// No loss, but an error annotation still belongs in the failure log.
	rec := Record{
		Timestamp: time.Now(),
		Connected: true,
		Sent:      1, Received: 1,
		MinMs: fp(9), MaxMs: fp(9), AvgMs: fp(9),
		Results: []string{"9"},
		Error:   "resolver unreachable",
	}
	if err := w.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	if got := readLines(t, filepath.Join(dir, "fail.log")); len(got) != 1 {
		t.Fatalf("failure log has %d lines, want 1", len(got))
	}
}

func TestNewRejectsUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "occupied")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := New(Config{
		AllPath:     filepath.Join(blocker, "all.log"),
		FailurePath: filepath.Join(dir, "fail.log"),
		MaxMB:       1,
		MaxBackups:  1,
	})
	if err == nil {
		t.Fatalf("expected constructor failure for a destination under a regular file")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
