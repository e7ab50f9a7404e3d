package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const dailySuffix = ".jsonl"

// dailyFileName is YYYY-MM-DD.jsonl, 15 bytes. Cleanup relies on the fixed
// width to compare the date part lexically.
func dailyFileName(t time.Time) string {
	return t.Format("2006-01-02") + dailySuffix
}

// NewDailyFile opens (creating if needed) today's JSONL log file under dir
// and returns a slog JSON logger appending to it. The caller owns the file.
func NewDailyFile(dir string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(dir, dailyFileName(time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(slog.NewJSONHandler(f, nil)), f, nil
}

// Cleanup removes daily log files older than retentionDays and returns the
// number of files removed. Files that do not match the daily naming pattern
// are left alone.
func Cleanup(dir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format("2006-01-02")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || len(name) != len("2006-01-02")+len(dailySuffix) || filepath.Ext(name) != dailySuffix {
			continue
		}
		if name[:len("2006-01-02")] < cutoff {
			if err := os.Remove(filepath.Join(dir, name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
