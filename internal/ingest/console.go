package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ConsoleSource reads one command per line from an interactive reader.
type ConsoleSource struct {
	reader io.Reader
}

// NewConsoleSource creates a source reading from r, usually os.Stdin.
func NewConsoleSource(r io.Reader) *ConsoleSource {
	return &ConsoleSource{reader: r}
}

// Name implements Source.
func (c *ConsoleSource) Name() string { return "console" }

// Run pushes every non-blank line. It returns nil at EOF or when ctx ends.
// The reading goroutine may outlive Run while blocked on the reader.
func (c *ConsoleSource) Run(ctx context.Context, q *Queue) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(c.reader)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			q.Push(c.Name(), line)
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("reading console: %w", err)
			}
			return nil
		}
	}
}
