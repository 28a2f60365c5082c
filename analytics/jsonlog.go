package analytics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/moyoez/sharesession/tool"
)

// JSONLogger appends one JSON object per event.
type JSONLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{w: w}
}

// OpenJSONLogger appends to the file at path, creating it and its folder.
func OpenJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create analytics folder: %v", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics log: %v", err)
	}
	return &JSONLogger{w: f, closer: f}, nil
}

func (l *JSONLogger) Log(event Event) {
	data, err := sonic.Marshal(event)
	if err != nil {
		tool.DefaultLogger.Warnf("[Analytics] Failed to encode %s: %v", event.Type, err)
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(data); err != nil {
		tool.DefaultLogger.Warnf("[Analytics] Failed to write %s: %v", event.Type, err)
	}
}

func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}
