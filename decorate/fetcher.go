package decorate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hazyhaar/shopoverlay/horosafe"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// OverlaySource yields the descriptor for one product. ok is false for
// "no overlay", whatever the reason; implementations never surface errors.
type OverlaySource interface {
	Fetch(ctx context.Context, id overlay.ProductID) (d overlay.Descriptor, ok bool)
}

// maxResponse caps the read endpoint body.
const maxResponse = 64 << 10

// Fetcher reads descriptors from the configuration store's HTTP endpoint.
type Fetcher struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client. The default has no timeout.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithFetchLogger sets the logger.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher for the API rooted at base, e.g.
// "https://shop.example/apps/product-badge".
func NewFetcher(base string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch issues exactly one GET. Transport errors, non-2xx answers,
// malformed bodies and absent or incomplete descriptors all yield ok=false.
func (f *Fetcher) Fetch(ctx context.Context, id overlay.ProductID) (overlay.Descriptor, bool) {
	d, err := f.fetch(ctx, id)
	if err != nil {
		f.logger.Warn("decorate: overlay data not available", "product_id", string(id), "error", err)
		return overlay.Descriptor{}, false
	}
	if d == nil || !d.Present() {
		f.logger.Debug("decorate: no overlay configured", "product_id", string(id))
		return overlay.Descriptor{}, false
	}
	return d.Normalize(), true
}

func (f *Fetcher) fetch(ctx context.Context, id overlay.ProductID) (*overlay.Descriptor, error) {
	u := f.base + "/api/overlays/" + url.PathEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, maxResponse)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var r overlay.Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return r.Overlay, nil
}
