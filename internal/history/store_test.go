package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iaserrat/uptimemon/internal/metrics"
)

func fp(v float64) *float64 { return &v }

func window(target string, ts time.Time, avg *float64, sent, received, timeouts int) metrics.Window {
	return metrics.Window{
		Target:       target,
		Start:        ts,
		End:          ts.Add(time.Second),
		Sent:         sent,
		Received:     received,
		Lost:         sent - received,
		AvgPingMs:    avg,
		TimeoutCount: timeouts,
	}
}

func TestNilStore(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open empty path: %v", err)
	}
	if s != nil {
		t.Fatalf("empty path must disable the store")
	}
	if err := s.Append(metrics.Window{}); err != nil {
		t.Errorf("nil store append = %v", err)
	}
	if _, err := s.Stats("8.8.8.8", time.Time{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("nil store stats err = %v, want ErrDisabled", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store close = %v", err)
	}
}

func TestAppendAndStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	windows := []metrics.Window{
		window("8.8.8.8", base, fp(10), 10, 10, 0),
		window("8.8.8.8", base.Add(2*time.Second), fp(20), 10, 8, 2),
		window("8.8.8.8", base.Add(4*time.Second), nil, 10, 0, 10),
		window("1.1.1.1", base, fp(5), 10, 10, 0),
	}
	for _, w := range windows {
		if err := s.Append(w); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	st, err := s.Stats("8.8.8.8", time.Time{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Windows != 3 {
		t.Errorf("windows = %d, want 3", st.Windows)
	}
	if st.Sent != 30 || st.Received != 18 {
		t.Errorf("sent/received = %d/%d, want 30/18", st.Sent, st.Received)
	}
	if st.PacketLossPct != 40.0 {
		t.Errorf("loss = %v, want 40.0", st.PacketLossPct)
	}
	if st.TimeoutCount != 12 {
		t.Errorf("timeouts = %d, want 12", st.TimeoutCount)
	}
	// NULL averages stay out of the mean: (10 + 20) / 2.
	if st.AvgPingMs == nil || *st.AvgPingMs != 15.0 {
		t.Errorf("avg = %v, want 15.0", st.AvgPingMs)
	}
}

func TestStatsSinceFiltersWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_ = s.Append(window("8.8.8.8", base, fp(10), 10, 10, 0))
	_ = s.Append(window("8.8.8.8", base.Add(time.Hour), fp(30), 10, 10, 0))

	st, err := s.Stats("8.8.8.8", base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Windows != 1 {
		t.Errorf("windows = %d, want only the recent one", st.Windows)
	}
	if st.AvgPingMs == nil || *st.AvgPingMs != 30.0 {
		t.Errorf("avg = %v, want 30.0", st.AvgPingMs)
	}

	st, err = s.Stats("8.8.8.8", base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Windows != 0 || st.AvgPingMs != nil || st.PacketLossPct != 0 {
		t.Errorf("future window stats = %+v, want empty", st)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append(window("8.8.8.8", time.Now(), fp(12), 5, 5, 0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	st, err := s.Stats("8.8.8.8", time.Time{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Windows != 1 || st.Sent != 5 {
		t.Errorf("reopened stats = %+v", st)
	}
}
