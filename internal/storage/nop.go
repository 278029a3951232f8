package storage

import "github.com/apronsim/apronsim/pkg/core"

// Nop discards the journal.
type Nop struct{}

func (Nop) Init() error                                { return nil }
func (Nop) Close() error                               { return nil }
func (Nop) StartSession(*core.Session) error           { return nil }
func (Nop) EndSession() error                          { return nil }
func (Nop) RecordCommand(*core.CommandRecord) error    { return nil }
func (Nop) RecordLifecycle(*core.LifecycleEvent) error { return nil }
