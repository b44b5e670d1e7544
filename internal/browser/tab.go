package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a storefront page opened for decoration.
type Tab struct {
	Page    *rod.Page
	PageURL string
}

// Open creates a tab and navigates it to pageURL. It returns once the
// navigation has committed; readiness is the engine's concern.
func (b *Browser) Open(ctx context.Context, pageURL string) (*Tab, error) {
	r := b.handle()
	if r == nil {
		return nil, fmt.Errorf("browser: not started")
	}

	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(r)
	} else {
		page, err = r.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(b.cfg.ResourceBlocking) > 0 {
		blockResources(page, b.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	return &Tab{Page: page.Context(ctx), PageURL: pageURL}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
