// Package dom is the engine's view of a host storefront page. The
// decoration engine only talks to these interfaces; htmldoc backs them with
// an in-memory x/net/html tree and roddoc with a live Chrome tab.
package dom

import "context"

// NodeID identifies a node within one document. Two Elements returned by
// different queries refer to the same node iff their NodeIDs are equal.
type NodeID string

// Document is a host page.
type Document interface {
	// Ready blocks until the document has left the "loading" state.
	// It returns immediately when the document is already interactive.
	Ready(ctx context.Context) error

	// Path returns the current location pathname.
	Path(ctx context.Context) (string, error)

	// QueryAll returns the elements matching a selector group, in document
	// order, each node at most once.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// QueryFirst returns the first element matching selector, or nil.
	QueryFirst(ctx context.Context, selector string) (Element, error)
}

// Element is one host page element.
type Element interface {
	NodeID() NodeID

	// Attr returns an attribute value and whether it is set.
	Attr(ctx context.Context, name string) (string, bool, error)
	SetAttr(ctx context.Context, name, value string) error

	// ComputedPosition returns the element's computed CSS position
	// ("static", "relative", ...).
	ComputedPosition(ctx context.Context) (string, error)
	// SetInlineStyle sets one inline style property.
	SetInlineStyle(ctx context.Context, property, value string) error

	// QueryFirst searches the element's descendants.
	QueryFirst(ctx context.Context, selector string) (Element, error)

	// AppendOverlay builds n and appends it as the element's last child.
	AppendOverlay(ctx context.Context, n OverlayNode) error
}

// Observable documents can report DOM mutations. Each value on the
// returned channel means "the tree changed since the previous signal";
// the channel closes when ctx ends.
type Observable interface {
	Mutations(ctx context.Context) (<-chan struct{}, error)
}

// OverlayNode is the presentation-only node injected into a container:
// an outer positioned element wrapping a label. Text is always inserted
// as a text node, never parsed as markup.
type OverlayNode struct {
	Class      string
	Style      string
	LabelClass string
	LabelStyle string
	Text       string
}
