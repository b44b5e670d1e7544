// Package roddoc implements dom.Document on a live Chrome tab through
// go-rod. Every operation is a CDP round-trip evaluated in the page, so
// overlays land in the real storefront DOM.
package roddoc

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/shopoverlay/dom"
)

// Document wraps a rod page.
type Document struct {
	page *rod.Page
}

// New wraps page. The page should already be navigated.
func New(page *rod.Page) *Document {
	return &Document{page: page}
}

// Ready waits for document.readyState to leave "loading".
func (d *Document) Ready(ctx context.Context) error {
	if err := d.page.Context(ctx).Wait(rod.Eval(`() => document.readyState !== 'loading'`)); err != nil {
		return fmt.Errorf("roddoc: wait ready: %w", err)
	}
	return nil
}

func (d *Document) Path(ctx context.Context) (string, error) {
	res, err := d.page.Context(ctx).Eval(`() => window.location.pathname`)
	if err != nil {
		return "", fmt.Errorf("roddoc: location: %w", err)
	}
	return res.Value.Str(), nil
}

// QueryAll runs querySelectorAll once for the whole selector group.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("roddoc: query %q: %w", selector, err)
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		e, err := wrap(el)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// QueryFirst does not wait for the selector to appear.
func (d *Document) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	has, el, err := d.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("roddoc: query %q: %w", selector, err)
	}
	if !has {
		return nil, nil
	}
	return wrap(el)
}

// Element wraps a rod element with the backend node id CDP assigns to it,
// which stays stable across separate queries.
type Element struct {
	el *rod.Element
	id dom.NodeID
}

func wrap(el *rod.Element) (*Element, error) {
	node, err := el.Describe(0, false)
	if err != nil {
		return nil, fmt.Errorf("roddoc: describe: %w", err)
	}
	return &Element{el: el, id: dom.NodeID(strconv.Itoa(int(node.BackendNodeID)))}, nil
}

func (e *Element) NodeID() dom.NodeID { return e.id }

func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("roddoc: attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) SetAttr(ctx context.Context, name, value string) error {
	_, err := e.el.Context(ctx).Eval(`(name, value) => this.setAttribute(name, value)`, name, value)
	if err != nil {
		return fmt.Errorf("roddoc: set attribute %s: %w", name, err)
	}
	return nil
}

func (e *Element) ComputedPosition(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => window.getComputedStyle(this).position`)
	if err != nil {
		return "", fmt.Errorf("roddoc: computed style: %w", err)
	}
	return res.Value.Str(), nil
}

func (e *Element) SetInlineStyle(ctx context.Context, property, value string) error {
	_, err := e.el.Context(ctx).Eval(`(p, v) => this.style.setProperty(p, v)`, property, value)
	if err != nil {
		return fmt.Errorf("roddoc: set style %s: %w", property, err)
	}
	return nil
}

func (e *Element) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	has, el, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("roddoc: query %q: %w", selector, err)
	}
	if !has {
		return nil, nil
	}
	return wrap(el)
}

const appendOverlayJS = `(cls, style, labelCls, labelStyle, text) => {
	const outer = document.createElement('div');
	outer.className = cls;
	outer.style.cssText = style;
	const label = document.createElement('span');
	label.className = labelCls;
	label.style.cssText = labelStyle;
	label.textContent = text;
	outer.appendChild(label);
	this.appendChild(outer);
}`

func (e *Element) AppendOverlay(ctx context.Context, n dom.OverlayNode) error {
	_, err := e.el.Context(ctx).Eval(appendOverlayJS, n.Class, n.Style, n.LabelClass, n.LabelStyle, n.Text)
	if err != nil {
		return fmt.Errorf("roddoc: append overlay: %w", err)
	}
	return nil
}
