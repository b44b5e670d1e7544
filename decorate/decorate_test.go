package decorate

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/shopoverlay/dom"
	"github.com/hazyhaar/shopoverlay/dom/htmldoc"
	"github.com/hazyhaar/shopoverlay/overlay"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSource serves canned descriptors and records every fetch.
type fakeSource struct {
	mu          sync.Mutex
	descriptors map[overlay.ProductID]overlay.Descriptor
	calls       []overlay.ProductID
}

func newFakeSource(m map[overlay.ProductID]overlay.Descriptor) *fakeSource {
	return &fakeSource{descriptors: m}
}

func (f *fakeSource) Fetch(_ context.Context, id overlay.ProductID) (overlay.Descriptor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	d, ok := f.descriptors[id]
	return d, ok
}

func (f *fakeSource) fetched() []overlay.ProductID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]overlay.ProductID(nil), f.calls...)
}

func parse(t *testing.T, markup, path string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(markup, path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func first(t *testing.T, doc dom.Document, sel string) dom.Element {
	t.Helper()
	el, err := doc.QueryFirst(context.Background(), sel)
	if err != nil {
		t.Fatalf("QueryFirst(%q): %v", sel, err)
	}
	if el == nil {
		t.Fatalf("QueryFirst(%q): no match", sel)
	}
	return el
}

// overlaysIn returns the overlay nodes that are direct children of el.
func overlaysIn(el dom.Element) []*html.Node {
	var out []*html.Node
	for c := el.(*htmldoc.Element).Node().FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && attr(c, "class") == OverlayClass {
			out = append(out, c)
		}
	}
	return out
}

func countOverlays(t *testing.T, doc *htmldoc.Document) int {
	t.Helper()
	els, err := doc.QueryAll(context.Background(), "."+OverlayClass)
	if err != nil {
		t.Fatal(err)
	}
	return len(els)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func labelText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
