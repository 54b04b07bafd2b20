package assetsync

import "fmt"

// Event is delivered to the observer registered with WithObserver.
// It is one of Progress, Loaded or Failed.
type Event interface {
	event()
}

// Progress reports bytes synchronized so far. It is emitted only while the
// loader is synchronizing, and never after Loaded or Failed.
type Progress struct {
	Loaded int64
	Total  int64
}

// Loaded is emitted once when every node has been applied.
type Loaded struct{}

// Failed is emitted once with the error that ended the run.
type Failed struct {
	Err error
}

func (Progress) event() {}
func (Loaded) event()   {}
func (Failed) event()   {}

func (f Failed) String() string { return "failed: " + f.Err.Error() }

type State int32

const (
	StateIdle State = iota
	StateResolvingManifest
	StateDiffing
	StateSynchronizing
	StateApplying
	StateLoaded
	StateErrored
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateResolvingManifest: "resolving-manifest",
	StateDiffing:           "diffing",
	StateSynchronizing:     "synchronizing",
	StateApplying:          "applying",
	StateLoaded:            "loaded",
	StateErrored:           "errored",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool { return s == StateLoaded || s == StateErrored }
