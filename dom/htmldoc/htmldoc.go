// Package htmldoc implements dom.Document over an in-memory
// golang.org/x/net/html tree. It backs the engine's tests and the probe
// command; it has no layout engine, so computed position is read from the
// inline style attribute only.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/shopoverlay/dom"
)

// Document is a parsed page. All reads and writes are serialised on one
// mutex so concurrent per-card renders never race on the tree.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	path string
	ids  map[*html.Node]dom.NodeID
}

// Parse reads an HTML page. path is the location pathname the page was
// served under.
func Parse(r io.Reader, path string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{root: root, path: path, ids: make(map[*html.Node]dom.NodeID)}, nil
}

// ParseString is Parse for literal markup.
func ParseString(s, path string) (*Document, error) {
	return Parse(strings.NewReader(s), path)
}

// Ready is immediate: a parsed tree is always complete.
func (d *Document) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Path returns the pathname given to Parse.
func (d *Document) Path(context.Context) (string, error) {
	return d.path, nil
}

// QueryAll returns matches of a selector group in document order.
func (d *Document) QueryAll(_ context.Context, selector string) ([]dom.Element, error) {
	sels, err := parseGroup(selector)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []dom.Element
	walk(d.root, func(n *html.Node) bool {
		if matchAny(sels, n) {
			out = append(out, d.element(n))
		}
		return true
	})
	return out, nil
}

// QueryFirst returns the first match in document order, or nil.
func (d *Document) QueryFirst(_ context.Context, selector string) (dom.Element, error) {
	sels, err := parseGroup(selector)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.first(d.root, sels), nil
}

// Render serialises the current tree.
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("htmldoc: render: %w", err)
	}
	return buf.String(), nil
}

// Mutate runs fn on the root node under the document lock, for callers
// that need to change the tree the way page scripts would.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// first searches below scope (scope itself excluded). Caller holds mu.
func (d *Document) first(scope *html.Node, sels []complexSel) dom.Element {
	var found *html.Node
	for c := scope.FirstChild; c != nil && found == nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if matchAny(sels, n) {
				found = n
				return false
			}
			return true
		})
	}
	if found == nil {
		return nil
	}
	return d.element(found)
}

// element wraps n, assigning a stable NodeID on first sight. Caller holds mu.
func (d *Document) element(n *html.Node) *Element {
	id, ok := d.ids[n]
	if !ok {
		id = dom.NodeID("n" + strconv.Itoa(len(d.ids)+1))
		d.ids[n] = id
	}
	return &Element{doc: d, node: n, id: id}
}

func matchAny(sels []complexSel, n *html.Node) bool {
	for _, s := range sels {
		if s.matches(n) {
			return true
		}
	}
	return false
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// Element is a node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
	id   dom.NodeID
}

func (e *Element) NodeID() dom.NodeID { return e.id }

// Node exposes the underlying html node for inspection in tests.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) Attr(_ context.Context, name string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, ok := lookupAttr(e.node, name)
	return v, ok, nil
}

func (e *Element) SetAttr(_ context.Context, name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.node, name, value)
	return nil
}

// ComputedPosition reads "position" from the inline style; "static" when
// unset.
func (e *Element) ComputedPosition(context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if v := styleProperty(getAttr(e.node, "style"), "position"); v != "" {
		return v, nil
	}
	return "static", nil
}

func (e *Element) SetInlineStyle(_ context.Context, property, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.node, "style", setStyleProperty(getAttr(e.node, "style"), property, value))
	return nil
}

func (e *Element) QueryFirst(_ context.Context, selector string) (dom.Element, error) {
	sels, err := parseGroup(selector)
	if err != nil {
		return nil, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.first(e.node, sels), nil
}

func (e *Element) AppendOverlay(_ context.Context, o dom.OverlayNode) error {
	label := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "class", Val: o.LabelClass}, {Key: "style", Val: o.LabelStyle}},
	}
	label.AppendChild(&html.Node{Type: html.TextNode, Data: o.Text})

	outer := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: o.Class}, {Key: "style", Val: o.Style}},
	}
	outer.AppendChild(label)

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.node.AppendChild(outer)
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// styleProperty extracts one declaration from an inline style string.
func styleProperty(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), property) {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

// setStyleProperty replaces or appends one declaration.
func setStyleProperty(style, property, value string) string {
	var decls []string
	replaced := false
	for _, decl := range strings.Split(style, ";") {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		k, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(k), property) {
			decl = property + ": " + value
			replaced = true
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if !replaced {
		decls = append(decls, property+": "+value)
	}
	return strings.Join(decls, "; ") + ";"
}
