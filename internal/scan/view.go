package scan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ironsheep/image-extract-mcp/internal/imaging"
)

// Status messages published to a View.
const (
	StatusEmpty     = "No response to render."
	StatusRendering = "Rendering images..."
	StatusNoImages  = "No supported image found in response body."
	statusFailed    = "Unable to render images: "
)

// State is the coordinator state of a session.
type State int

const (
	Idle State = iota
	Scanning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Update is one change to the visible state of a session.
type Update struct {
	// Version is the scan version the update belongs to.
	Version int64 `json:"version"`

	State State `json:"state"`

	// Status is the human-readable status line.
	Status string `json:"status"`

	// Entries is the gallery. Empty unless a scan found images.
	Entries []imaging.Entry `json:"images"`
}

// Failed reports whether the update carries a pipeline diagnostic.
func (u Update) Failed() bool {
	return strings.HasPrefix(u.Status, statusFailed)
}

// Summarize builds the idle update for a finished pipeline run.
func Summarize(entries []imaging.Entry, err error) Update {
	u := Update{State: Idle}
	switch {
	case err != nil:
		u.Status = statusFailed + err.Error()
	case len(entries) == 0:
		u.Status = StatusNoImages
	default:
		u.Status = fmt.Sprintf("Found %d image(s).", len(entries))
		u.Entries = entries
	}
	return u
}

// View receives the visible state of a session.
//
// Apply is called with the session lock held, so updates arrive in version
// order and never interleave. Implementations must not call back into the
// Session.
type View interface {
	Apply(Update)
}

// Gallery is a View that keeps the latest update for later reads.
type Gallery struct {
	mu     sync.RWMutex
	latest Update
}

// Apply implements View.
func (g *Gallery) Apply(u Update) {
	g.mu.Lock()
	g.latest = u
	g.mu.Unlock()
}

// Snapshot returns the most recent update.
func (g *Gallery) Snapshot() Update {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latest
}
