// Package parser turns raw command lines into dispatcher events.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apronsim/apronsim/internal/cmderr"
	"github.com/apronsim/apronsim/internal/dispatcher"
)

// Canonical command names.
const (
	RouteQuery       = "route-query"
	SpawnAircraft    = "spawn-aircraft"
	InitVehicle      = "init-vehicle"
	MoveVehicle      = "move-vehicle"
	TriggerAnimation = "trigger-animation"
	ClearFleet       = "clear-fleet"
)

// ErrEmptyLine is returned for lines with no tokens. Callers skip them.
var ErrEmptyLine = errors.New("empty command line")

// wireNames maps the short slash form to the canonical name.
var wireNames = map[string]string{
	"/way":    RouteQuery,
	"/plane":  SpawnAircraft,
	"/init":   InitVehicle,
	"/move":   MoveVehicle,
	"/action": TriggerAnimation,
	"/clear":  ClearFleet,
}

// Commands lists every canonical command name.
func Commands() []string {
	return []string{RouteQuery, SpawnAircraft, InitVehicle, MoveVehicle, TriggerAnimation, ClearFleet}
}

// Canonical resolves a wire name or canonical name.
func Canonical(name string) (string, bool) {
	if c, ok := wireNames[name]; ok {
		return c, true
	}
	for _, c := range Commands() {
		if c == name {
			return c, true
		}
	}
	return "", false
}

// Parse splits a whitespace-tokenized line into a command and its positional
// arguments. Argument count is left to the handlers.
func Parse(line string) (dispatcher.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return dispatcher.Event{}, ErrEmptyLine
	}

	name, ok := Canonical(fields[0])
	if !ok {
		return dispatcher.Event{}, fmt.Errorf("%w: unknown command %q", cmderr.ErrInvalidFormat, fields[0])
	}

	return dispatcher.Event{
		Command: name,
		Args:    fields[1:],
	}, nil
}
