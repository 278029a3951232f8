package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/apronsim/apronsim/internal/cmderr"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.record("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.record("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.record("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.record("ERROR", msg, keysAndValues)
}

func (l *testLogger) record(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) has(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, msg := range l.messages {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("route-query", func(e Event) (any, error) {
		got = e
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: "route-query", Args: []string{"A", "B"}, Seq: 7, Source: "console"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
	if got.Seq != 7 || got.Source != "console" || len(got.Args) != 2 {
		t.Errorf("handler received wrong event: %+v", got)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "warp-drive"})

	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !errors.Is(err, cmderr.ErrInvalidFormat) {
		t.Errorf("expected invalid format, got %v", err)
	}
}

func TestDispatcher_HandlerErrorPassesThrough(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("clear-fleet", func(e Event) (any, error) {
		return nil, fmt.Errorf("%w: nothing here", cmderr.ErrNotFound)
	})

	_, err := d.Dispatch(Event{Command: "clear-fleet"})
	if !errors.Is(err, cmderr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("spawn-aircraft", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "spawn-aircraft", Args: []string{"1"}})

	logger.mu.Lock()
	count := len(logger.messages)
	logger.mu.Unlock()

	if count < 2 {
		t.Errorf("expected at least 2 log messages, got %d", count)
	}
}

func TestDispatcher_LoggedHandlerWarnsOnRejection(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("move-vehicle", func(e Event) (any, error) {
		return nil, cmderr.ErrUnreachable
	}, Logged())

	d.Dispatch(Event{Command: "move-vehicle"})

	if !logger.has("WARN") {
		t.Error("expected warn log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("init-vehicle", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("init-vehicle") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("teleport") {
		t.Error("expected handler to not exist")
	}

	if d.Commands() != 1 {
		t.Errorf("expected 1 command, got %d", d.Commands())
	}
}
