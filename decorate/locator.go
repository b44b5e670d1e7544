package decorate

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/shopoverlay/dom"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// Scope selects which containers the locator looks for.
type Scope int

const (
	// ScopeDetail targets product media wrappers on a product page.
	ScopeDetail Scope = iota
	// ScopeListing targets product cards on collection and search pages.
	ScopeListing
)

func (s Scope) String() string {
	if s == ScopeListing {
		return "listing"
	}
	return "detail"
}

// LocatorConfig holds the theme heuristics. Empty lists take the defaults.
type LocatorConfig struct {
	DetailSelectors  []string `yaml:"detail_selectors"`
	DetailMarkers    []string `yaml:"detail_markers"`
	ListingSelectors []string `yaml:"listing_selectors"`
	ListingMarkers   []string `yaml:"listing_markers"`
}

// Default theme heuristics.
var (
	DefaultDetailSelectors = []string{
		".product__media-container",
		".product__image-wrapper",
		".product-single__photo",
		".product__media",
		".product__image",
	}
	DefaultDetailMarkers    = []string{"product-image", "product-media"}
	DefaultListingSelectors = []string{".product-card", ".product-item", ".collection-product", ".grid-product"}
	DefaultListingMarkers   = []string{"product-card", "product-item"}
)

func (c *LocatorConfig) defaults() {
	if len(c.DetailSelectors) == 0 {
		c.DetailSelectors = DefaultDetailSelectors
	}
	if len(c.DetailMarkers) == 0 {
		c.DetailMarkers = DefaultDetailMarkers
	}
	if len(c.ListingSelectors) == 0 {
		c.ListingSelectors = DefaultListingSelectors
	}
	if len(c.ListingMarkers) == 0 {
		c.ListingMarkers = DefaultListingMarkers
	}
}

// Locator discovers containers eligible for overlay injection.
//
// Two strategies are unioned because no fixed selector set matches every
// theme: the allow-list, issued as one combined selector, and a
// class-substring scan, issued as one [class*=...] query.
type Locator struct {
	detail  [2]string
	listing [2]string
}

// NewLocator builds the combined queries once.
func NewLocator(cfg LocatorConfig) *Locator {
	cfg.defaults()
	return &Locator{
		detail:  [2]string{strings.Join(cfg.DetailSelectors, ", "), markerQuery(cfg.DetailMarkers)},
		listing: [2]string{strings.Join(cfg.ListingSelectors, ", "), markerQuery(cfg.ListingMarkers)},
	}
}

func markerQuery(markers []string) string {
	parts := make([]string, 0, len(markers))
	for _, m := range markers {
		parts = append(parts, fmt.Sprintf(`[class*=%q]`, m))
	}
	return strings.Join(parts, ", ")
}

// Locate returns allow-list matches followed by marker matches, each node
// once, first occurrence kept.
func (l *Locator) Locate(ctx context.Context, doc dom.Document, scope Scope) ([]dom.Element, error) {
	queries := l.detail
	if scope == ScopeListing {
		queries = l.listing
	}

	var out []dom.Element
	seen := make(map[dom.NodeID]bool)
	for _, q := range queries {
		els, err := doc.QueryAll(ctx, q)
		if err != nil {
			return out, fmt.Errorf("decorate: locate %s: %w", scope, err)
		}
		for _, el := range els {
			if seen[el.NodeID()] {
				continue
			}
			seen[el.NodeID()] = true
			out = append(out, el)
		}
	}
	return out, nil
}

// CardIdentity resolves a listing card's own product: its data-product-id,
// else the first descendant carrying one.
func (l *Locator) CardIdentity(ctx context.Context, card dom.Element) (overlay.ProductID, bool) {
	if v, ok, err := card.Attr(ctx, ProductIDAttr); err == nil && ok && v != "" {
		return overlay.ProductID(v), true
	}
	el, err := card.QueryFirst(ctx, "["+ProductIDAttr+"]")
	if err != nil || el == nil {
		return "", false
	}
	v, _, err := el.Attr(ctx, ProductIDAttr)
	if err != nil || v == "" {
		return "", false
	}
	return overlay.ProductID(v), true
}
