// File: internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/helmsman/internal/browser"
	"github.com/xkilldash9x/helmsman/internal/config"
)

// ErrNoSession indicates an operation that requires an established session
// page was called before one exists. This is a caller bug, not a transient
// browser condition.
var ErrNoSession = errors.New("no active session page")

const defaultLivenessTimeout = 2 * time.Second

// ConfirmNewTabFunc is consulted before RequestNewTab opens a second tab.
// Returning false falls back to navigating the existing session page.
type ConfirmNewTabFunc func(ctx context.Context, url, reason string) bool

// Session maintains a single logical working tab over a browser handle,
// deciding reuse versus new-tab creation and performing normalized,
// idempotent navigation. One instance per logical automation session;
// mutating calls must not run concurrently without external serialization.
type Session struct {
	id      string
	browser browser.Browser
	cfg     config.TabsConfig
	logger  *zap.Logger

	confirmNewTab   ConfirmNewTabFunc
	livenessTimeout time.Duration

	mu         sync.Mutex
	page       browser.Page
	lastTarget string // normalized URL of the last successful navigation
}

// Option customizes a Session.
type Option func(*Session)

// WithConfirmNewTab installs a confirmation callback for RequestNewTab.
func WithConfirmNewTab(fn ConfirmNewTabFunc) Option {
	return func(s *Session) { s.confirmNewTab = fn }
}

// WithLivenessTimeout overrides the bound on per-page liveness probes.
func WithLivenessTimeout(d time.Duration) Option {
	return func(s *Session) { s.livenessTimeout = d }
}

// New creates a tab session policy over the given browser handle.
func New(b browser.Browser, cfg config.TabsConfig, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		id:              uuid.New().String(),
		browser:         b,
		cfg:             cfg,
		livenessTimeout: defaultLivenessTimeout,
	}
	s.logger = logger.Named("tab_session").With(zap.String("session_id", s.id))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	return s.id
}

// GetOrCreatePage returns the session's working page, establishing one if
// needed. Resolution order: reuse the current page if it is still alive,
// adopt the browser's active page (skipped under the always_new strategy),
// create a brand-new page. When initialURL is given, a fresh or adopted page
// is navigated there; a reused page is only re-navigated if the target
// differs by origin and path from the last navigation.
func (s *Session) GetOrCreatePage(ctx context.Context, initialURL string) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageAlive(ctx, s.page) {
		if initialURL != "" && !sameTarget(s.lastTarget, NormalizeURL(initialURL)) {
			if err := s.navigateLocked(ctx, initialURL); err != nil {
				return nil, err
			}
		}
		return s.page, nil
	}
	if s.page != nil {
		s.logger.Debug("Session page is no longer alive; discarding.")
		s.page = nil
		s.lastTarget = ""
	}

	page, adopted, err := s.establishPageLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.page = page
	if adopted {
		s.logger.Debug("Adopted the browser's active page as session page.")
	} else {
		s.logger.Debug("Created a new session page.")
	}

	if initialURL != "" {
		if err := s.navigateLocked(ctx, initialURL); err != nil {
			return nil, err
		}
	}
	return s.page, nil
}

// establishPageLocked finds a reusable page or creates one. Callers must
// hold s.mu.
func (s *Session) establishPageLocked(ctx context.Context) (browser.Page, bool, error) {
	if s.cfg.Strategy != config.StrategyAlwaysNew {
		page, err := s.browser.ActivePage(ctx)
		if err == nil && s.pageAlive(ctx, page) {
			return page, true, nil
		}
		if err != nil && !errors.Is(err, browser.ErrNoPages) {
			s.logger.Debug("Could not query active page; creating a new one.", zap.Error(err))
		}
	}

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("creating session page: %w", err)
	}
	return page, false, nil
}

// NavigateTo navigates the session page to the URL, normalizing it first and
// waiting for the load to settle. Requires an established session page.
func (s *Session) NavigateTo(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return ErrNoSession
	}
	return s.navigateLocked(ctx, rawURL)
}

// navigateLocked performs the actual navigation and records the normalized
// target on success. Callers must hold s.mu.
func (s *Session) navigateLocked(ctx context.Context, rawURL string) error {
	normalized := NormalizeURL(rawURL)
	s.logger.Info("Navigating session page.", zap.String("url", normalized))

	if err := s.page.Navigate(ctx, normalized, s.cfg.NavigationTimeout); err != nil {
		return fmt.Errorf("navigating session page: %w", err)
	}
	s.lastTarget = normalized
	return nil
}

// RequestNewTab explicitly opens a second tab for the URL. If a confirmation
// callback is configured and rejects, the existing session page is navigated
// instead. An accepted new tab replaces the tracked session page; the session
// follows exactly one tab at a time.
func (s *Session) RequestNewTab(ctx context.Context, rawURL, reason string) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := NormalizeURL(rawURL)
	if s.confirmNewTab != nil && !s.confirmNewTab(ctx, normalized, reason) {
		s.logger.Info("New tab declined; navigating existing session page instead.",
			zap.String("url", normalized), zap.String("reason", reason))
		if s.page != nil {
			if err := s.navigateLocked(ctx, rawURL); err != nil {
				return nil, err
			}
			return s.page, nil
		}
		// Nothing to fall back to; the new page below becomes the session
		// page rather than a second tab.
	}

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening new tab: %w", err)
	}
	if err := page.Navigate(ctx, normalized, s.cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("navigating new tab: %w", err)
	}

	if s.page != nil {
		s.logger.Debug("Replacing tracked session page with new tab.", zap.String("reason", reason))
	}
	s.page = page
	s.lastTarget = normalized
	return page, nil
}

// ShouldCreateNewTab decides, without side effects, whether navigating from
// currentURL to targetURL warrants an isolated tab.
func (s *Session) ShouldCreateNewTab(currentURL, targetURL string) bool {
	switch s.cfg.Strategy {
	case config.StrategyAlwaysReuse:
		return false
	case config.StrategyAlwaysNew:
		return true
	}

	// Smart strategy. Any parse failure fails safe to reuse.
	target, err := parseURL(targetURL)
	if err != nil {
		return false
	}
	if isolatingScheme(target.Scheme) {
		return true
	}
	if currentURL == "" {
		return false
	}
	current, err := parseURL(currentURL)
	if err != nil {
		return false
	}
	if equalHost(current.Hostname(), target.Hostname()) {
		return false
	}

	// Switching between two distinct stateful workspace sites gets its own
	// tab; everything else stays in place.
	ci := s.workspaceIndex(current.Hostname())
	ti := s.workspaceIndex(target.Hostname())
	return ci >= 0 && ti >= 0 && ci != ti
}

// workspaceIndex returns the index of the workspace-domain entry matching
// host, or -1.
func (s *Session) workspaceIndex(host string) int {
	for i, domain := range s.cfg.WorkspaceDomains {
		if hostMatchesDomain(host, domain) {
			return i
		}
	}
	return -1
}

// Page returns the tracked session page without probing it. May be nil.
func (s *Session) Page() browser.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// CurrentURL returns the session page's current location, or the empty
// string when there is no page or it no longer responds. It never errors.
func (s *Session) CurrentURL(ctx context.Context) string {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()

	if page == nil {
		return ""
	}
	url, err := page.URL(ctx)
	if err != nil {
		s.logger.Debug("Could not read session page URL.", zap.Error(err))
		return ""
	}
	return url
}

// Cleanup closes the session page if present and clears all session state.
// Close errors are logged, never propagated.
func (s *Session) Cleanup(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		if err := s.page.Close(ctx); err != nil {
			s.logger.Warn("Error closing session page during cleanup.", zap.Error(err))
		}
	}
	s.page = nil
	s.lastTarget = ""
	s.logger.Debug("Session cleaned up.")
}

// pageAlive probes a page with a trivial evaluation, bounded by the liveness
// timeout. The underlying tab can be closed externally at any moment, so
// liveness is always re-checked, never cached.
func (s *Session) pageAlive(ctx context.Context, page browser.Page) bool {
	if page == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.livenessTimeout)
	defer cancel()
	return page.Evaluate(probeCtx, "1 + 1", nil) == nil
}
