// Package telemetrylog saves decoded EC3K records to a CSV file, with
// optional daily file rotation. It is the Go-native, cgo-free replacement
// for direwolf's log.go: same daily-rotation shape, same "write once per
// record, keep the file open between writes" approach, retargeted at CSV
// rows of telemetry fields instead of APRS packet properties.
package telemetrylog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/kf7etx/ec3k/internal/ec3k"
)

// dailyPattern is the strftime pattern daily-rotated file names are built
// from, one file per UTC day, matching the "2006-01-02.log" shape of the
// original daily naming scheme.
const dailyPattern = "%Y-%m-%d.csv"

var csvHeader = []string{
	"reception_timestamp", "device_id",
	"time_total", "time_on", "energy",
	"power_current", "power_max",
	"reset_counter", "device_on", "energy_aux",
}

// Logger appends decoded records to a CSV file, rotating daily when
// constructed with NewDaily, or writing to a single fixed path when
// constructed with NewFixed. A Logger keeps its file open between writes;
// Write and Close serialise on an internal mutex, so one Logger may be
// shared across goroutines.
type Logger struct {
	mu sync.Mutex

	dir       string // Non-empty for daily rotation; empty for a fixed path.
	pattern   *strftime.Strftime
	fixedPath string

	f           *os.File
	w           *csv.Writer
	openName    string
	wroteHeader bool
}

// NewDaily returns a Logger that writes one file per UTC day inside dir,
// creating dir if it doesn't already exist.
func NewDaily(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetrylog: create log directory: %w", err)
	}
	pattern, err := strftime.New(dailyPattern)
	if err != nil {
		return nil, fmt.Errorf("telemetrylog: compile daily pattern: %w", err)
	}
	return &Logger{dir: dir, pattern: pattern}, nil
}

// NewFixed returns a Logger that always appends to the single file at path.
func NewFixed(path string) *Logger {
	return &Logger{fixedPath: path}
}

// Write appends one decoded record as a CSV row, opening or rotating the
// underlying file as needed.
func (l *Logger) Write(rec *ec3k.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, err := l.currentName()
	if err != nil {
		return err
	}

	if l.f != nil && name != l.openName {
		l.closeLocked()
	}

	if l.f == nil {
		if err := l.openLocked(name); err != nil {
			return err
		}
	}

	row := []string{
		strconv.FormatInt(rec.ReceptionTimestamp, 10),
		strconv.Itoa(rec.DeviceID),
		strconv.Itoa(rec.TimeTotal),
		strconv.Itoa(rec.TimeOn),
		strconv.Itoa(rec.Energy),
		strconv.FormatFloat(rec.PowerCurrent, 'f', 1, 64),
		strconv.FormatFloat(rec.PowerMax, 'f', 1, 64),
		strconv.Itoa(rec.ResetCounter),
		strconv.FormatBool(rec.DeviceOnFlag),
		strconv.Itoa(rec.EnergyAux),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("telemetrylog: write row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the currently open file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func (l *Logger) currentName() (string, error) {
	if l.dir == "" {
		return l.fixedPath, nil
	}
	name := l.pattern.FormatString(nowUTC())
	return filepath.Join(l.dir, name), nil
}

func (l *Logger) openLocked(name string) error {
	_, statErr := os.Stat(name)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("telemetrylog: open %s: %w", name, err)
	}
	log.Info("opened telemetry log", "path", name)

	l.f = f
	l.w = csv.NewWriter(f)
	l.openName = name
	l.wroteHeader = !needHeader

	if !l.wroteHeader {
		if err := l.w.Write(csvHeader); err != nil {
			return fmt.Errorf("telemetrylog: write header: %w", err)
		}
		l.w.Flush()
		l.wroteHeader = true
	}
	return nil
}

func (l *Logger) closeLocked() error {
	if l.f == nil {
		return nil
	}
	l.w.Flush()
	err := l.f.Close()
	l.f = nil
	l.w = nil
	return err
}
