package log

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("capture file was not created")
	}
	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}
}

func TestFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.clog"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("NewFileLogger error = %v, want ErrNotExist", err)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.clog")

	for _, id := range []string{"conn-1", "conn-2"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{
			Timestamp:    time.Now(),
			ConnectionID: id,
			Layer:        LayerTransport,
			Frame:        NewFrameEvent([]byte{0xB0, 0x00, 0x00, 0xC0, 0x01}),
		})
		if logger.Count() != 1 {
			t.Errorf("Count() = %d, want 1", logger.Count())
		}
		logger.Close()
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open capture: %v", err)
	}
	defer f.Close()

	events, err := ReadAll(f, Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ConnectionID != "conn-1" || events[1].ConnectionID != "conn-2" {
		t.Errorf("events out of order: %q, %q", events[0].ConnectionID, events[1].ConnectionID)
	}
}

func TestFileLoggerThreadSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const numGoroutines = 8
	const eventsPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				logger.Log(Event{Timestamp: time.Now(), Category: CategoryControl, Control: &ControlEvent{Type: ControlPing}})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if logger.Count() != numGoroutines*eventsPerGoroutine {
		t.Errorf("Count() = %d, want %d", logger.Count(), numGoroutines*eventsPerGoroutine)
	}
	if logger.Err() != nil {
		t.Errorf("Err() = %v", logger.Err())
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	n := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		n++
	}
	if n != numGoroutines*eventsPerGoroutine {
		t.Errorf("read %d events, want %d", n, numGoroutines*eventsPerGoroutine)
	}
}

func TestFileLoggerClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.clog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	logger.Log(Event{Timestamp: time.Now()})
	if logger.Count() != 0 {
		t.Errorf("Count() after Close = %d, want 0", logger.Count())
	}
}
