// File: internal/browser/session/fakes_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xkilldash9x/helmsman/internal/browser"
)

type fakePage struct {
	mu          sync.Mutex
	dead        bool
	url         string
	navigations []string
	closed      bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return errors.New("fake page: dead")
	}
	p.url = url
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *fakePage) Evaluate(_ context.Context, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return errors.New("fake page: dead")
	}
	return nil
}

func (p *fakePage) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return "", errors.New("fake page: dead")
	}
	return p.url, nil
}

func (p *fakePage) Close(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.dead = true
	return nil
}

func (p *fakePage) navCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.navigations)
}

type fakeBrowser struct {
	mu            sync.Mutex
	active        *fakePage
	created       []*fakePage
	newPageErr    error
	activePageErr error
}

func (b *fakeBrowser) NewPage(_ context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	p := &fakePage{}
	b.created = append(b.created, p)
	return p, nil
}

func (b *fakeBrowser) ActivePage(_ context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activePageErr != nil {
		return nil, b.activePageErr
	}
	if b.active == nil || b.active.closed {
		return nil, browser.ErrNoPages
	}
	return b.active, nil
}

func (b *fakeBrowser) Close(_ context.Context) error     { return nil }
func (b *fakeBrowser) Terminate(_ context.Context) error { return nil }

var (
	_ browser.Browser = (*fakeBrowser)(nil)
	_ browser.Page    = (*fakePage)(nil)
)
