package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every persisted setting. The file is flat TOML meant to
// be hand-edited; anything invalid in it is corrected, never fatal.
type Config struct {
	Target          string `toml:"target"`
	Count           int    `toml:"count"`
	TimeoutMS       int    `toml:"timeout"`
	DesiredInterval int    `toml:"desired_interval"`
	AllLogPath      string `toml:"all_log_path"`
	FailureLogPath  string `toml:"failure_log_path"`
	Pinger          string `toml:"pinger"`
	Resolver        string `toml:"resolver"`
	MaxLogMB        int    `toml:"max_log_mb"`
	MaxLogBackups   int    `toml:"max_log_backups"`
	HistoryDB       string `toml:"history_db"`
}

func Default() Config {
	return Config{
		Target:          "8.8.8.8",
		Count:           10,
		TimeoutMS:       1000,
		DesiredInterval: 1,
		AllLogPath:      "all_attempts.log",
		FailureLogPath:  "lost_connection.log",
		Pinger:          "exec",
		Resolver:        "1.1.1.1:53",
		MaxLogMB:        10,
		MaxLogBackups:   5,
		HistoryDB:       "ping_history.db",
	}
}

func (c Config) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

func (c Config) Interval() time.Duration { return time.Duration(c.DesiredInterval) * time.Second }

// Load reads path and returns a usable Config no matter what it finds.
// The returned notes describe every correction applied: a missing file
// (created with defaults), a missing or invalid key (reset to its
// default), or an undecodable file (replaced whole). Corrections are
// merged back into the file so the next run starts clean; a failed
// rewrite is itself only a note.
func Load(path string) (Config, []string) {
	cfg := Default()
	var notes []string

	raw := map[string]any{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if os.IsNotExist(err) {
			if werr := writeFile(path, cfg); werr != nil {
				notes = append(notes, fmt.Sprintf("config %s missing and could not be created: %v", path, werr))
			} else {
				notes = append(notes, fmt.Sprintf("created default config %s", path))
			}
			return cfg, notes
		}

		notes = append(notes, fmt.Sprintf("config %s unreadable, falling back to defaults: %v", path, err))
		if werr := writeFile(path, cfg); werr != nil {
			notes = append(notes, fmt.Sprintf("config %s could not be rewritten: %v", path, werr))
		}
		return cfg, notes
	}

	def := Default()
	before := len(notes)

	cfg.Target = strKey(raw, "target", def.Target, nonEmpty, &notes)
	cfg.Count = intKey(raw, "count", def.Count, 1, 100, &notes)
	cfg.TimeoutMS = intKey(raw, "timeout", def.TimeoutMS, 100, 60000, &notes)
	cfg.DesiredInterval = intKey(raw, "desired_interval", def.DesiredInterval, 1, 60, &notes)
	cfg.AllLogPath = strKey(raw, "all_log_path", def.AllLogPath, nonEmpty, &notes)
	cfg.FailureLogPath = strKey(raw, "failure_log_path", def.FailureLogPath, nonEmpty, &notes)
	cfg.Pinger = strKey(raw, "pinger", def.Pinger, validPinger, &notes)
	cfg.Resolver = strKey(raw, "resolver", def.Resolver, anyString, &notes)
	cfg.MaxLogMB = intKey(raw, "max_log_mb", def.MaxLogMB, 1, 1<<20, &notes)
	cfg.MaxLogBackups = intKey(raw, "max_log_backups", def.MaxLogBackups, 0, 1<<20, &notes)
	cfg.HistoryDB = strKey(raw, "history_db", def.HistoryDB, anyString, &notes)

	if len(notes) > before {
		if werr := writeFile(path, cfg); werr != nil {
			notes = append(notes, fmt.Sprintf("config %s could not be rewritten: %v", path, werr))
		}
	}

	return cfg, notes
}

func nonEmpty(s string) bool { return strings.TrimSpace(s) != "" }

func anyString(string) bool { return true }

func validPinger(s string) bool {
	switch s {
	case "exec", "icmp", "auto":
		return true
	}
	return false
}

func strKey(raw map[string]any, key, def string, valid func(string) bool, notes *[]string) string {
	v, present := raw[key]
	if !present {
		*notes = append(*notes, fmt.Sprintf("%s missing, set to %q", key, def))
		return def
	}
	s, ok := v.(string)
	if !ok {
		*notes = append(*notes, fmt.Sprintf("%s is not a string, reset to %q", key, def))
		return def
	}
	s = strings.TrimSpace(s)
	if !valid(s) {
		*notes = append(*notes, fmt.Sprintf("%s value %q invalid, reset to %q", key, s, def))
		return def
	}
	return s
}

func intKey(raw map[string]any, key string, def, lo, hi int, notes *[]string) int {
	v, present := raw[key]
	if !present {
		*notes = append(*notes, fmt.Sprintf("%s missing, set to %d", key, def))
		return def
	}
	n, ok := v.(int64)
	if !ok {
		*notes = append(*notes, fmt.Sprintf("%s is not an integer, reset to %d", key, def))
		return def
	}
	if n < int64(lo) || n > int64(hi) {
		*notes = append(*notes, fmt.Sprintf("%s value %d out of range [%d, %d], reset to %d", key, n, lo, hi, def))
		return def
	}
	return int(n)
}

// writeFile renders the canonical documented file. Values go through
// %q / %d so a rewritten file always parses.
func writeFile(path string, c Config) error {
	var b bytes.Buffer
	b.WriteString("# uptimemon configuration.\n")
	b.WriteString("# Invalid or missing values are reset to their defaults on startup.\n\n")

	fmt.Fprintf(&b, "# Host to monitor, IP address or hostname.\ntarget = %q\n\n", c.Target)
	fmt.Fprintf(&b, "# Pings sent per monitoring window (1-100).\ncount = %d\n\n", c.Count)
	fmt.Fprintf(&b, "# Per-ping timeout in milliseconds (100-60000).\ntimeout = %d\n\n", c.TimeoutMS)
	fmt.Fprintf(&b, "# Seconds between windows, measured from the end of each batch (1-60).\ndesired_interval = %d\n\n", c.DesiredInterval)
	fmt.Fprintf(&b, "# Log receiving every window.\nall_log_path = %q\n\n", c.AllLogPath)
	fmt.Fprintf(&b, "# Log receiving only windows with loss or errors.\nfailure_log_path = %q\n\n", c.FailureLogPath)
	fmt.Fprintf(&b, "# Probe implementation: exec (ping binary), icmp (raw socket, needs\n# privilege), or auto (icmp with fallback to exec).\npinger = %q\n\n", c.Pinger)
	fmt.Fprintf(&b, "# DNS server for health checks during outages; empty disables them.\nresolver = %q\n\n", c.Resolver)
	fmt.Fprintf(&b, "# Rotate logs past this size in megabytes.\nmax_log_mb = %d\n\n", c.MaxLogMB)
	fmt.Fprintf(&b, "# Rotated files to retain per log.\nmax_log_backups = %d\n\n", c.MaxLogBackups)
	fmt.Fprintf(&b, "# SQLite history database; empty disables history.\nhistory_db = %q\n", c.HistoryDB)

	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
