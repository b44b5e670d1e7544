// Package decorate is the overlay decoration engine: it resolves the
// product a page is about, fetches its overlay descriptor, locates image
// containers in unknown theme markup and injects overlay nodes, on detail
// and listing pages alike.
//
// Usage:
//
//	s := decorate.NewScheduler(decorate.NewFetcher(apiBase), decorate.Config{}, logger)
//	err := s.Run(ctx, doc) // doc: htmldoc.Document or roddoc.Document
package decorate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/shopoverlay/dom"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// StateAttr marks containers the engine already decorated, so a second
// run on the same page (client-side navigation, re-injection) skips them.
const (
	StateAttr      = "data-overlay-state"
	StateDecorated = "decorated"
)

// Config tunes the scheduler.
type Config struct {
	// ListingDelay is how long after activation the listing pass fires.
	// Default: 1s.
	ListingDelay time.Duration `yaml:"listing_delay"`

	// ListingConcurrency bounds concurrent per-card fetches. 0 = unbounded.
	ListingConcurrency int `yaml:"listing_concurrency"`

	// ObserveMutations keeps rescanning for new listing cards after the
	// first listing pass, on documents that support it.
	ObserveMutations bool `yaml:"observe_mutations"`

	// Debounce is the quiet period before a mutation-triggered rescan.
	// Default: 250ms.
	Debounce time.Duration `yaml:"debounce"`

	Locator LocatorConfig `yaml:"locator"`
}

func (c *Config) defaults() {
	if c.ListingDelay <= 0 {
		c.ListingDelay = time.Second
	}
	if c.Debounce <= 0 {
		c.Debounce = 250 * time.Millisecond
	}
}

// Scheduler orchestrates the detail and listing passes for one page.
type Scheduler struct {
	cfg      Config
	source   OverlaySource
	resolver *Resolver
	locator  *Locator
	renderer Renderer
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler reading descriptors from source.
func NewScheduler(source OverlaySource, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "decorate")
	return &Scheduler{
		cfg:      cfg,
		source:   source,
		resolver: NewResolver(logger),
		locator:  NewLocator(cfg.Locator),
		logger:   logger,
	}
}

// run holds the per-page claim set. An element is claimed at most once
// per run, whichever pass reaches it first.
type run struct {
	mu      sync.Mutex
	claimed map[dom.NodeID]bool
}

func (r *run) claim(id dom.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimed[id] {
		return false
	}
	r.claimed[id] = true
	return true
}

// Run decorates doc. The detail pass starts once the document is ready;
// the listing pass fires ListingDelay after Run was called whatever the
// detail pass found. With ObserveMutations on an Observable document, Run
// keeps rescanning for new cards until ctx ends. Page-level failures are
// logged, never returned; Run only fails when the document never becomes
// ready.
func (s *Scheduler) Run(ctx context.Context, doc dom.Document) error {
	r := &run{claimed: make(map[dom.NodeID]bool)}

	var mutations <-chan struct{}
	if obs, ok := doc.(dom.Observable); ok && s.cfg.ObserveMutations {
		ch, err := obs.Mutations(ctx)
		if err != nil {
			s.logger.Warn("decorate: mutation observation unavailable", "error", err)
		} else {
			mutations = debounce(ctx, ch, s.cfg.Debounce)
		}
	}

	listingTimer := time.NewTimer(s.cfg.ListingDelay)
	defer listingTimer.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-listingTimer.C:
		}
		if err := doc.Ready(ctx); err != nil {
			return
		}
		s.listingPass(ctx, doc, r)
		if mutations == nil {
			return
		}
		for range mutations {
			s.logger.Debug("decorate: dom changed, rescanning listing")
			s.listingPass(ctx, doc, r)
		}
	}()

	err := doc.Ready(ctx)
	if err == nil {
		s.detailPass(ctx, doc, r)
	}
	wg.Wait()
	return err
}

func (s *Scheduler) detailPass(ctx context.Context, doc dom.Document, r *run) {
	id, ok := s.resolver.Resolve(ctx, doc)
	if !ok {
		s.logger.Debug("decorate: no product identity on page")
		return
	}
	d, ok := s.source.Fetch(ctx, id)
	if !ok || !d.Present() {
		return
	}

	containers, err := s.locator.Locate(ctx, doc, ScopeDetail)
	if err != nil {
		s.logger.Warn("decorate: locate detail containers", "error", err)
	}
	n := 0
	for _, c := range containers {
		if s.decorate(ctx, r, c, d) {
			n++
		}
	}
	s.logger.Info("decorate: detail pass done", "product_id", string(id), "containers", len(containers), "decorated", n)
}

func (s *Scheduler) listingPass(ctx context.Context, doc dom.Document, r *run) {
	cards, err := s.locator.Locate(ctx, doc, ScopeListing)
	if err != nil {
		s.logger.Warn("decorate: locate listing cards", "error", err)
	}

	var g errgroup.Group
	if s.cfg.ListingConcurrency > 0 {
		g.SetLimit(s.cfg.ListingConcurrency)
	}
	fetches := 0
	for _, card := range cards {
		if s.isDecorated(ctx, card) {
			continue
		}
		id, ok := s.locator.CardIdentity(ctx, card)
		if !ok {
			continue
		}
		if !r.claim(card.NodeID()) {
			continue
		}
		fetches++
		g.Go(func() error {
			if d, ok := s.source.Fetch(ctx, id); ok && d.Present() {
				s.render(ctx, card, d)
			}
			return nil
		})
	}
	g.Wait()
	if fetches > 0 {
		s.logger.Info("decorate: listing pass done", "cards", len(cards), "fetches", fetches)
	}
}

// decorate renders into c unless this run or an earlier one already did.
func (s *Scheduler) decorate(ctx context.Context, r *run, c dom.Element, d overlay.Descriptor) bool {
	if s.isDecorated(ctx, c) || !r.claim(c.NodeID()) {
		return false
	}
	return s.render(ctx, c, d)
}

func (s *Scheduler) render(ctx context.Context, c dom.Element, d overlay.Descriptor) bool {
	if err := s.renderer.Render(ctx, c, d); err != nil {
		s.logger.Warn("decorate: render failed", "node", string(c.NodeID()), "error", err)
		return false
	}
	if err := c.SetAttr(ctx, StateAttr, StateDecorated); err != nil {
		s.logger.Debug("decorate: mark container", "error", err)
	}
	return true
}

func (s *Scheduler) isDecorated(ctx context.Context, c dom.Element) bool {
	v, ok, err := c.Attr(ctx, StateAttr)
	return err == nil && ok && v == StateDecorated
}
