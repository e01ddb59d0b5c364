package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iaserrat/uptimemon/internal/metrics"
)

// ErrDisabled is returned by queries on a nil Store.
var ErrDisabled = errors.New("history database disabled")

// timeLayout is fixed-width UTC so stored timestamps compare
// lexicographically in range queries. RFC3339Nano would trim trailing
// zeros and break that ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store mirrors every window record into SQLite so past runs stay
// queryable after the text logs rotate away. A nil Store is valid and
// drops everything, which is how history_db = "" behaves.
type Store struct {
	db *sql.DB
}

// Open returns (nil, nil) for an empty path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history %s: %w", pragma, err)
		}
	}

	schema := `
    CREATE TABLE IF NOT EXISTS windows (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp TEXT NOT NULL,
        target TEXT NOT NULL,
        avg_ping_ms REAL,
        jitter_ms REAL NOT NULL,
        packet_loss_pct REAL NOT NULL,
        timeout_count INTEGER NOT NULL,
        sent INTEGER NOT NULL,
        received INTEGER NOT NULL,
        status TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_windows_timestamp ON windows(timestamp);
    CREATE INDEX IF NOT EXISTS idx_windows_target_timestamp ON windows(target, timestamp);
    `
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores one window. A nil receiver drops it silently.
func (s *Store) Append(w metrics.Window) error {
	if s == nil {
		return nil
	}

	status := "Disconnected"
	if w.Connected() {
		status = "Connected"
	}

	_, err := s.db.Exec(`
        INSERT INTO windows (timestamp, target, avg_ping_ms, jitter_ms, packet_loss_pct, timeout_count, sent, received, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		w.Start.UTC().Format(timeLayout),
		w.Target,
		w.AvgPingMs,
		w.JitterMs,
		w.PacketLossPct,
		w.TimeoutCount,
		w.Sent,
		w.Received,
		status,
	)
	if err != nil {
		return fmt.Errorf("history insert: %w", err)
	}

	return nil
}

// Stats aggregates the stored windows for one target since the given
// time.
type Stats struct {
	Windows       int
	Sent          int
	Received      int
	AvgPingMs     *float64
	PacketLossPct float64
	TimeoutCount  int
}

func (s *Store) Stats(target string, since time.Time) (Stats, error) {
	if s == nil {
		return Stats{}, ErrDisabled
	}

	row := s.db.QueryRow(`
        SELECT
            COUNT(*),
            AVG(avg_ping_ms),
            SUM(sent),
            SUM(received),
            SUM(timeout_count)
        FROM windows
        WHERE target = ? AND timestamp >= ?
    `, target, since.UTC().Format(timeLayout))

	var (
		st       Stats
		avg      sql.NullFloat64
		sent     sql.NullInt64
		received sql.NullInt64
		timeouts sql.NullInt64
	)
	if err := row.Scan(&st.Windows, &avg, &sent, &received, &timeouts); err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}

	if avg.Valid {
		v := avg.Float64
		st.AvgPingMs = &v
	}
	st.Sent = int(sent.Int64)
	st.Received = int(received.Int64)
	st.TimeoutCount = int(timeouts.Int64)
	if st.Sent > 0 {
		st.PacketLossPct = float64(st.Sent-st.Received) / float64(st.Sent) * 100.0
	}

	return st, nil
}
