// File: internal/browser/interfaces.go
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoPages indicates the browser is reachable but has no open page targets.
// An empty browser is still usable; a page will be created on demand.
var ErrNoPages = errors.New("browser has no pages available")

// Page is the control capability for one browser tab.
type Page interface {
	// Navigate loads the URL and waits for the document to become ready,
	// bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Evaluate runs a JavaScript expression in the page and unmarshals the
	// result into out. Pass nil to discard the result.
	Evaluate(ctx context.Context, script string, out any) error
	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)
	// Close closes the tab.
	Close(ctx context.Context) error
}

// Browser is the control capability for one browser process, independent of
// how it was obtained (launched locally or attached over the debug port).
type Browser interface {
	// NewPage opens a fresh tab.
	NewPage(ctx context.Context) (Page, error)
	// ActivePage attaches to the browser's current foreground page. Returns
	// ErrNoPages when no page targets exist.
	ActivePage(ctx context.Context) (Page, error)
	// Close releases this handle's control of the browser. For a launched
	// browser this terminates the process we own; for an attached one it
	// only detaches, leaving the external process running.
	Close(ctx context.Context) error
	// Terminate ends the browser process regardless of transport.
	Terminate(ctx context.Context) error
}

// Liveness is the tri-state result of probing a browser handle.
type Liveness int

const (
	// Dead means the handle no longer responds.
	Dead Liveness = iota
	// AliveEmpty means the browser responds but has no open pages.
	AliveEmpty
	// Alive means the browser responds and has at least one usable page.
	Alive
)

func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case AliveEmpty:
		return "alive_empty"
	default:
		return "dead"
	}
}

// Probe actively checks whether the browser behind b still responds. It
// attaches to the active page and evaluates a trivial expression; a missing
// page is not a failure, because a page can be created on demand.
func Probe(ctx context.Context, b Browser, timeout time.Duration) Liveness {
	if b == nil {
		return Dead
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := b.ActivePage(probeCtx)
	if errors.Is(err, ErrNoPages) {
		return AliveEmpty
	}
	if err != nil {
		return Dead
	}
	if err := page.Evaluate(probeCtx, "1 + 1", nil); err != nil {
		return Dead
	}
	return Alive
}
