package driver

import "github.com/shaneholloman/ultimate-bug-scanner/internal/engine"

// EventKind tells where a unit is in the scan.
type EventKind int

const (
	// EventDiscovered is sent once with the number of units.
	EventDiscovered EventKind = iota
	// EventUnitDone is sent after each unit, from the worker goroutine.
	EventUnitDone
	// EventFinished is sent after the last unit.
	EventFinished
)

// Event is a progress notification.
type Event struct {
	Kind   EventKind
	Total  int
	Done   int
	Path   string
	Result *engine.Result
	Cached bool
}

// Observer receives progress events. It is called concurrently from
// worker goroutines and must not block for long.
type Observer func(Event)
