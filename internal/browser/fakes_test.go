// File: internal/browser/fakes_test.go
package browser

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakePage is an in-memory Page for exercising policy logic without Chrome.
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

// fakeBrowser is an in-memory Browser with instrumented lifecycle calls.
type fakeBrowser struct {
	mu             sync.Mutex
	pages          []*fakePage
	dead           bool
	newPageErr     error
	closeCalls     int
	terminateCalls int
}

func (b *fakeBrowser) NewPage(_ context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		return nil, errors.New("fake browser: dead")
	}
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	p := &fakePage{}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) ActivePage(_ context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		return nil, errors.New("fake browser: dead")
	}
	for _, p := range b.pages {
		if !p.closed {
			return p, nil
		}
	}
	return nil, ErrNoPages
}

func (b *fakeBrowser) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCalls++
	return nil
}

func (b *fakeBrowser) Terminate(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.terminateCalls++
	b.dead = true
	return nil
}

var (
	_ Browser = (*fakeBrowser)(nil)
	_ Page    = (*fakePage)(nil)
)
