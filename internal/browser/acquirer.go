// File: internal/browser/acquirer.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/helmsman/internal/config"
)

// Provenance describes how a browser handle was obtained.
type Provenance string

const (
	// ProvenanceAttachedExternal means we attached to a user's already
	// running, debug-enabled browser.
	ProvenanceAttachedExternal Provenance = "attached_external"
	// ProvenanceReused means a previously acquired handle was still alive.
	ProvenanceReused Provenance = "reused"
	// ProvenanceLaunchedNew means a fresh browser process was started.
	ProvenanceLaunchedNew Provenance = "launched_new"
)

// AcquisitionResult is produced fresh on every GetOrCreateBrowser call.
type AcquisitionResult struct {
	Browser       Browser
	Provenance    Provenance
	IsNewInstance bool
}

// Acquirer decides, each time a browser is needed, whether to attach to an
// externally running debuggable browser, reuse a previously acquired
// instance, or launch a new one. It owns at most one browser handle at a
// time. Construct one per process; tests may construct isolated instances.
type Acquirer struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	// OnBeforeLaunch, when set, runs just before a new browser process is
	// started, so the caller can warn the user.
	OnBeforeLaunch func(ctx context.Context)

	mu       sync.Mutex
	browser  Browser
	external bool

	// Seams for tests; default to the chromedp transports.
	launch func(ctx context.Context) (Browser, error)
	attach func(ctx context.Context, wsURL string) (Browser, error)
	probe  func(ctx context.Context) (*VersionInfo, error)
}

// NewAcquirer creates an acquisition policy bound to the given browser
// configuration.
func NewAcquirer(cfg config.BrowserConfig, logger *zap.Logger) *Acquirer {
	a := &Acquirer{
		cfg:    cfg,
		logger: logger.Named("acquirer"),
	}
	a.launch = func(ctx context.Context) (Browser, error) {
		return Launch(ctx, a.cfg, a.logger)
	}
	a.attach = func(ctx context.Context, wsURL string) (Browser, error) {
		return Attach(ctx, wsURL, a.logger)
	}
	a.probe = func(ctx context.Context) (*VersionInfo, error) {
		return ProbeDebugPort(ctx, a.cfg.DebugPort, a.cfg.AttachTimeout)
	}
	return a
}

// GetOrCreateBrowser produces a working browser handle. Decision order, each
// step short-circuiting:
//  1. a debug endpoint answering on the configured port wins — reuse our
//     existing external attachment if it is still alive, otherwise attach;
//  2. a previously launched instance that is still alive is reused;
//  3. a new browser process is launched.
//
// Every reused handle has passed a liveness probe within this call. Launch
// and attach failures propagate; retry policy belongs to the caller.
func (a *Acquirer) GetOrCreateBrowser(ctx context.Context) (*AcquisitionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if info, err := a.probe(ctx); err == nil {
		if a.browser != nil && a.external {
			if Probe(ctx, a.browser, a.cfg.LivenessTimeout) != Dead {
				a.logger.Debug("Reusing existing external browser attachment.")
				return &AcquisitionResult{Browser: a.browser, Provenance: ProvenanceReused}, nil
			}
			a.logger.Debug("Held external attachment is dead; re-attaching.")
			a.releaseLocked(ctx)
		}
		if a.browser != nil {
			// An external browser takes priority over anything we launched
			// earlier. Drop our reference; the old instance keeps running.
			a.logger.Debug("External browser detected; releasing held instance reference.")
			a.browser = nil
		}
		b, err := a.attach(ctx, info.WebSocketDebuggerURL)
		if err != nil {
			return nil, fmt.Errorf("attaching to external browser: %w", err)
		}
		a.browser = b
		a.external = true
		a.logger.Info("Attached to external browser.",
			zap.Int("debug_port", a.cfg.DebugPort),
			zap.String("browser", info.Browser))
		return &AcquisitionResult{Browser: b, Provenance: ProvenanceAttachedExternal, IsNewInstance: true}, nil
	}

	if a.browser != nil && !a.external {
		if Probe(ctx, a.browser, a.cfg.LivenessTimeout) != Dead {
			a.logger.Debug("Reusing previously launched browser instance.")
			return &AcquisitionResult{Browser: a.browser, Provenance: ProvenanceReused}, nil
		}
		a.logger.Warn("Previously launched browser is no longer alive; launching a new one.")
		a.releaseLocked(ctx)
	} else if a.browser != nil {
		// External attachment but the endpoint stopped answering: stale.
		a.logger.Debug("External attachment is stale; discarding.")
		a.releaseLocked(ctx)
	}

	if a.OnBeforeLaunch != nil {
		a.OnBeforeLaunch(ctx)
	}
	b, err := a.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	a.browser = b
	a.external = false
	return &AcquisitionResult{Browser: b, Provenance: ProvenanceLaunchedNew, IsNewInstance: true}, nil
}

// IsDebugPortActive reports whether a CDP endpoint answers on the configured
// port. It never returns an error; any probe failure is "false".
func (a *Acquirer) IsDebugPortActive(ctx context.Context) bool {
	_, err := a.probe(ctx)
	return err == nil
}

// Browser returns the held handle without probing liveness. May be nil.
func (a *Acquirer) Browser() Browser {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.browser
}

// IsExternal reports whether the held handle is attached to a browser we did
// not launch.
func (a *Acquirer) IsExternal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.browser != nil && a.external
}

// CloseBrowser releases the held browser. For an external attachment without
// force, only our reference is dropped and the user's browser keeps running.
// In persistent mode without force, a launched browser is deliberately left
// running for later reuse. Close errors are logged, never propagated; local
// state is cleared regardless.
func (a *Acquirer) CloseBrowser(ctx context.Context, force bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.browser == nil {
		return
	}

	switch {
	case a.external && !force:
		a.logger.Info("Detaching from external browser; leaving it running.")
		if err := a.browser.Close(ctx); err != nil {
			a.logger.Warn("Error detaching from external browser.", zap.Error(err))
		}
	case a.cfg.Persistent && !force:
		a.logger.Debug("Persistent mode: leaving launched browser running.")
		return
	case force:
		a.logger.Info("Force-closing browser.", zap.Bool("external", a.external))
		if err := a.browser.Terminate(ctx); err != nil {
			a.logger.Warn("Error terminating browser.", zap.Error(err))
		}
	default:
		a.logger.Info("Closing launched browser.")
		if err := a.browser.Close(ctx); err != nil {
			a.logger.Warn("Error closing browser.", zap.Error(err))
		}
	}

	a.browser = nil
	a.external = false
}

// Disconnect clears local references without touching the underlying
// process. Used when another owner is taking over the browser's lifecycle.
func (a *Acquirer) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.browser = nil
	a.external = false
}

// releaseLocked drops a dead handle, closing best-effort to reap whatever is
// left of it. Callers must hold a.mu.
func (a *Acquirer) releaseLocked(ctx context.Context) {
	if a.browser == nil {
		return
	}
	if err := a.browser.Close(ctx); err != nil {
		a.logger.Debug("Error closing dead browser handle.", zap.Error(err))
	}
	a.browser = nil
	a.external = false
}
