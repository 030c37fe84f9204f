package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"go.uber.org/zap"
)

// Capture appends every broadcast event to a JSON Lines file, one JSON
// object per line
type Capture struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	lines int
}

// OpenCapture creates capture-<timestamp>.jsonl in dir
func OpenCapture(dir string) (*Capture, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing telemetry", zap.String("filename", path))
	return &Capture{path: path, file: f}, nil
}

// Write appends one line
func (c *Capture) Write(line []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return
	}
	if _, err := c.file.Write(append(line, '\n')); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", c.path),
			zap.Error(err),
		)
		return
	}
	c.lines++
}

// Path returns the capture file's path
func (c *Capture) Path() string {
	return c.path
}

// Lines returns the number of events written
func (c *Capture) Lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}

// Close flushes and closes the file
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
