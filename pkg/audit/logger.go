package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/newtron-network/netcam-meraki/pkg/runner"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// FileLogger logs audit events to a JSON-lines file. It is a runner.Sink.
type FileLogger struct {
	path     string
	user     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// RotationConfig configures log file rotation
type RotationConfig struct {
	MaxSize    int64 // Max file size in bytes before rotation
	MaxBackups int   // Max number of old files to retain
}

// DefaultRotation is the rotation used by the CLI.
var DefaultRotation = RotationConfig{MaxSize: 10 * 1024 * 1024, MaxBackups: 10}

// NewFileLogger creates a new file-based audit logger. Events are attributed
// to $USER.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	return &FileLogger{
		path:     path,
		user:     os.Getenv("USER"),
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

// Path returns the log file path.
func (l *FileLogger) Path() string { return l.path }

// SaveDevice records one device report.
func (l *FileLogger) SaveDevice(ctx context.Context, runID string, rep runner.DeviceReport) error {
	return l.Log(NewEvent(l.user, runID, rep))
}

// Log writes an audit event to the log file
func (l *FileLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSize > 0 {
		if info, err := l.file.Stat(); err == nil {
			if info.Size() >= l.rotation.MaxSize {
				if err := l.rotate(); err != nil {
					return fmt.Errorf("rotating audit log: %w", err)
				}
			}
		}
	}

	return l.encoder.Encode(event)
}

// Query returns the events matching filter, oldest first. Only the current
// file is read; rotated files are not.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return queryFile(l.path, filter)
}

// QueryFile reads events from a log file without opening it for writing.
func QueryFile(path string, filter Filter) ([]*Event, error) {
	return queryFile(path, filter)
}

func queryFile(path string, filter Filter) ([]*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Event{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []*Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.Warnf("audit: skipping malformed log entry at line %d: %v", lineNum, err)
			continue
		}
		if filter.matches(&event) {
			events = append(events, &event)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(events) {
			events = nil
		} else {
			events = events[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(events) {
		events = events[:filter.Limit]
	}

	return events, scanner.Err()
}

// Close closes the log file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}

	rotatedPath := l.path + "." + time.Now().Format("20060102-150405.000000000")
	if err := os.Rename(l.path, rotatedPath); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.encoder = json.NewEncoder(file)

	if l.rotation.MaxBackups > 0 {
		l.cleanupOldFiles()
	}
	return nil
}

func (l *FileLogger) cleanupOldFiles() {
	matches, err := filepath.Glob(l.path + ".*")
	if err != nil {
		return
	}
	if len(matches) <= l.rotation.MaxBackups {
		return
	}

	// Rotated names embed the rotation time, so name order is age order.
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-l.rotation.MaxBackups] {
		os.Remove(path)
	}
}

var _ runner.Sink = (*FileLogger)(nil)
