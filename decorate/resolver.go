package decorate

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/hazyhaar/shopoverlay/dom"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// ProductIDAttr marks elements carrying a product identity.
const ProductIDAttr = "data-product-id"

const ogURLSelector = `meta[property="og:url"]`

var productSegment = regexp.MustCompile(`products/([^/?#]+)`)

// Resolver derives the current product's identity from page signals.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve tries, in order: the og:url meta tag, the first element carrying
// data-product-id, then the location path. The first hit wins.
func (r *Resolver) Resolve(ctx context.Context, doc dom.Document) (overlay.ProductID, bool) {
	for _, signal := range []func(context.Context, dom.Document) (string, error){
		fromOGURL,
		fromDataAttr,
		fromPath,
	} {
		id, err := signal(ctx, doc)
		if err != nil {
			r.logger.Debug("decorate: identity signal failed", "error", err)
			continue
		}
		if id != "" {
			return overlay.ProductID(id), true
		}
	}
	return "", false
}

// ProductSegment extracts the segment following "products/" in a URL or
// path, percent-decoded so that /products/caf%C3%A9 and an og:url carrying
// café resolve to the same handle. A malformed escape keeps the raw text.
func ProductSegment(s string) string {
	m := productSegment.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	if u, err := url.PathUnescape(m[1]); err == nil {
		return u
	}
	return m[1]
}

func fromOGURL(ctx context.Context, doc dom.Document) (string, error) {
	meta, err := doc.QueryFirst(ctx, ogURLSelector)
	if err != nil || meta == nil {
		return "", err
	}
	content, _, err := meta.Attr(ctx, "content")
	if err != nil {
		return "", err
	}
	return ProductSegment(content), nil
}

func fromDataAttr(ctx context.Context, doc dom.Document) (string, error) {
	el, err := doc.QueryFirst(ctx, "["+ProductIDAttr+"]")
	if err != nil || el == nil {
		return "", err
	}
	v, _, err := el.Attr(ctx, ProductIDAttr)
	return v, err
}

func fromPath(ctx context.Context, doc dom.Document) (string, error) {
	p, err := doc.Path(ctx)
	if err != nil {
		return "", err
	}
	return ProductSegment(p), nil
}
