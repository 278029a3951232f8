// pkg/core/command.go
package core

import "time"

// CommandRecord is the journal entry for one command pulled off the
// ingestion queue, whether it was applied or rejected.
type CommandRecord struct {
	ID       uint
	Seq      uint64 // global ingestion order
	Tick     uint64 // tick that applied it
	Source   string
	Line     string
	Command  string
	Args     []string
	Received time.Time
	Applied  time.Time
	Accepted bool
	Category string // rejection category, empty when accepted
	Error    string
	Result   string
}
