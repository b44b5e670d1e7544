package decorate

import (
	"context"
	"fmt"

	"github.com/hazyhaar/shopoverlay/dom"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// Classes carried by injected nodes, stable for operator styling.
const (
	OverlayClass = "app-product-overlay"
	LabelClass   = "overlay-text"
)

const overlayBaseStyle = "position: absolute; z-index: 1000; pointer-events: none; max-width: 200px; " +
	"font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; "

type sizeStyle struct {
	padding  string
	fontSize string
}

var sizeStyles = map[overlay.Size]sizeStyle{
	overlay.SizeSmall:  {padding: "4px 10px", fontSize: "10px"},
	overlay.SizeMedium: {padding: "8px 16px", fontSize: "12px"},
	overlay.SizeLarge:  {padding: "10px 20px", fontSize: "14px"},
}

// Renderer injects overlay nodes into containers.
type Renderer struct{}

// Render appends one overlay node to container. It is not idempotent:
// each call appends another node. Callers that may revisit a container
// track it themselves (see Scheduler).
func (Renderer) Render(ctx context.Context, container dom.Element, d overlay.Descriptor) error {
	d = d.Normalize()

	pos, err := container.ComputedPosition(ctx)
	if err != nil {
		return fmt.Errorf("decorate: render: %w", err)
	}
	if pos == "" || pos == "static" {
		if err := container.SetInlineStyle(ctx, "position", "relative"); err != nil {
			return fmt.Errorf("decorate: render: %w", err)
		}
	}

	if err := container.AppendOverlay(ctx, Node(d)); err != nil {
		return fmt.Errorf("decorate: render: %w", err)
	}
	return nil
}

// Node builds the overlay node for a normalized descriptor.
func Node(d overlay.Descriptor) dom.OverlayNode {
	sz, ok := sizeStyles[d.Size]
	if !ok {
		sz = sizeStyles[overlay.DefaultSize]
	}
	return dom.OverlayNode{
		Class:      OverlayClass,
		Style:      overlayBaseStyle + overlay.Placement(d.Position),
		LabelClass: LabelClass,
		LabelStyle: fmt.Sprintf("background-color: %s; color: white; padding: %s; border-radius: 8px; "+
			"font-weight: bold; text-transform: uppercase; font-size: %s; "+
			"box-shadow: 0 4px 12px rgba(0,0,0,0.15); border: 2px solid white; "+
			"text-shadow: 0 1px 2px rgba(0,0,0,0.3);", d.Color, sz.padding, sz.fontSize),
		Text: d.Text,
	}
}
