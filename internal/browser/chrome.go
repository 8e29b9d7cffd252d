// File: internal/browser/chrome.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/helmsman/internal/config"
)

// tabs handles page-target bookkeeping shared by both transports. Attachments
// are cached per target so repeated ActivePage calls (liveness probes, reuse
// checks) don't pile up new CDP sessions.
type tabs struct {
	browserCtx context.Context

	mu       sync.Mutex
	attached map[target.ID]*chromePage
}

func newTabs(browserCtx context.Context) *tabs {
	return &tabs{
		browserCtx: browserCtx,
		attached:   make(map[target.ID]*chromePage),
	}
}

// NewPage opens a fresh tab in the browser.
func (t *tabs) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(t.browserCtx)
	// An empty Run realizes the target.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	id := chromedp.FromContext(tabCtx).Target.TargetID
	page := &chromePage{ctx: tabCtx, cancel: tabCancel, onClose: func() { t.forget(id) }}

	t.mu.Lock()
	t.attached[id] = page
	t.mu.Unlock()
	return page, nil
}

// ActivePage attaches to the browser's current foreground page.
func (t *tabs) ActivePage(ctx context.Context) (Page, error) {
	infos, err := chromedp.Targets(t.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	var info *target.Info
	for _, ti := range infos {
		if ti.Type != "page" || strings.HasPrefix(ti.URL, "devtools://") {
			continue
		}
		info = ti
		break
	}
	if info == nil {
		return nil, ErrNoPages
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if page, ok := t.attached[info.TargetID]; ok {
		return page, nil
	}

	tabCtx, tabCancel := chromedp.NewContext(t.browserCtx, chromedp.WithTargetID(info.TargetID))
	id := info.TargetID
	page := &chromePage{ctx: tabCtx, cancel: tabCancel, onClose: func() { t.forget(id) }}
	t.attached[id] = page
	return page, nil
}

func (t *tabs) forget(id target.ID) {
	t.mu.Lock()
	delete(t.attached, id)
	t.mu.Unlock()
}

// launchedBrowser owns a Chrome process started by us via an exec allocator.
// Closing it terminates the process.
type launchedBrowser struct {
	*tabs
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

// attachedBrowser controls an externally running Chrome over its remote
// debugging endpoint. Closing it only detaches; the user's browser stays up.
type attachedBrowser struct {
	*tabs
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

var (
	_ Browser = (*launchedBrowser)(nil)
	_ Browser = (*attachedBrowser)(nil)
)

// Launch starts a new Chrome process with the remote debugging port enabled
// and returns a handle that owns it.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("remote-debugging-port", strconv.Itoa(cfg.DebugPort)),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	for _, arg := range cfg.Args {
		name, value := splitFlag(arg)
		opts = append(opts, chromedp.Flag(name, value))
	}

	// The browser outlives the acquiring call, so the allocator hangs off the
	// background context rather than ctx.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := runWithin(ctx, browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	logger.Info("Launched new browser instance.", zap.Int("debug_port", cfg.DebugPort))
	return &launchedBrowser{
		tabs:          newTabs(browserCtx),
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// Attach connects to an already running browser via its websocket debugger
// URL, as discovered on the debug port.
func Attach(ctx context.Context, wsURL string, logger *zap.Logger) (Browser, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), wsURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := runWithin(ctx, browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("attaching to browser at %s: %w", wsURL, err)
	}

	logger.Info("Attached to external browser.", zap.String("ws_url", wsURL))
	return &attachedBrowser{
		tabs:          newTabs(browserCtx),
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// runWithin starts the chromedp context while honoring the caller's
// cancellation, since chromedp actions only observe their own context tree.
func runWithin(ctx context.Context, browserCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (b *launchedBrowser) Close(ctx context.Context) error {
	// Graceful shutdown of the process we own.
	err := chromedp.Cancel(b.browserCtx)
	b.browserCancel()
	b.allocCancel()
	return err
}

func (b *launchedBrowser) Terminate(ctx context.Context) error {
	return b.Close(ctx)
}

func (b *attachedBrowser) Close(ctx context.Context) error {
	// Detach only. Plain context cancellation drops the websocket without
	// sending Browser.close, so the external process keeps running.
	b.browserCancel()
	b.allocCancel()
	return nil
}

func (b *attachedBrowser) Terminate(ctx context.Context) error {
	err := runWithin(ctx, b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdpbrowser.Close().Do(ctx)
	}))
	b.browserCancel()
	b.allocCancel()
	return err
}

// chromePage is a Page backed by one chromedp tab context.
type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	onClose func()

	closeOnce sync.Once
}

var _ Page = (*chromePage)(nil)

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Evaluate(ctx context.Context, script string, out any) error {
	if out == nil {
		var discard json.RawMessage
		out = &discard
	}
	return p.run(ctx, chromedp.Evaluate(script, out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *chromePage) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		if p.onClose != nil {
			p.onClose()
		}
		// chromedp.Cancel closes the target gracefully before releasing the
		// tab context.
		err = chromedp.Cancel(p.ctx)
		p.cancel()
	})
	return err
}

// splitFlag turns a raw "--name=value" argument into a chromedp flag pair.
func splitFlag(arg string) (string, any) {
	arg = strings.TrimLeft(arg, "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}
