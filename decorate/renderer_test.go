package decorate

import (
	"context"
	"strings"
	"testing"

	"github.com/hazyhaar/shopoverlay/dom/htmldoc"
	"github.com/hazyhaar/shopoverlay/overlay"
)

const renderPage = `<html><body>
<div class="product__media" id="static"></div>
<div class="product__media" id="sticky" style="position: sticky"></div>
</body></html>`

func TestRender_Basic(t *testing.T) {
	doc := parse(t, renderPage, "/products/x")
	ctx := context.Background()
	c := first(t, doc, "#static")

	d := overlay.Descriptor{Kind: overlay.KindText, Text: "SALE", Position: overlay.BottomRight, Color: "#00ff00"}
	if err := (Renderer{}).Render(ctx, c, d); err != nil {
		t.Fatal(err)
	}

	pos, _ := c.ComputedPosition(ctx)
	if pos != "relative" {
		t.Fatalf("container position = %q, want relative", pos)
	}

	nodes := overlaysIn(c)
	if len(nodes) != 1 {
		t.Fatalf("overlays = %d, want 1", len(nodes))
	}
	n := nodes[0]
	if n != c.(*htmldoc.Element).Node().LastChild {
		t.Fatal("overlay is not the last child")
	}
	style := attr(n, "style")
	for _, want := range []string{"position: absolute", "z-index: 1000", "pointer-events: none", "max-width: 200px", overlay.Placement(overlay.BottomRight)} {
		if !strings.Contains(style, want) {
			t.Errorf("overlay style %q missing %q", style, want)
		}
	}
	label := n.FirstChild
	if label == nil || attr(label, "class") != LabelClass {
		t.Fatal("label missing")
	}
	if ls := attr(label, "style"); !strings.Contains(ls, "background-color: #00ff00") || !strings.Contains(ls, "font-size: 12px") {
		t.Errorf("label style %q: want green background and medium size", ls)
	}
	if labelText(n) != "SALE" {
		t.Errorf("label text = %q", labelText(n))
	}
}

func TestRender_KeepsPositionedContainer(t *testing.T) {
	doc := parse(t, renderPage, "/products/x")
	ctx := context.Background()
	c := first(t, doc, "#sticky")

	if err := (Renderer{}).Render(ctx, c, overlay.Descriptor{Kind: overlay.KindText, Text: "NEW"}); err != nil {
		t.Fatal(err)
	}
	if pos, _ := c.ComputedPosition(ctx); pos != "sticky" {
		t.Fatalf("position = %q, want sticky untouched", pos)
	}
}

func TestRender_NotIdempotent(t *testing.T) {
	doc := parse(t, renderPage, "/products/x")
	ctx := context.Background()
	c := first(t, doc, "#static")
	d := overlay.Descriptor{Kind: overlay.KindBadge, Text: "HOT"}

	for i := 0; i < 2; i++ {
		if err := (Renderer{}).Render(ctx, c, d); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(overlaysIn(c)); n != 2 {
		t.Fatalf("overlays = %d, want 2", n)
	}
}

func TestRender_UnknownAnchorIsTopLeft(t *testing.T) {
	for _, pos := range []overlay.Anchor{"", "middle-ish", "TOP-RIGHT"} {
		doc := parse(t, renderPage, "/products/x")
		c := first(t, doc, "#static")
		d := overlay.Descriptor{Kind: overlay.KindText, Text: "X", Position: pos}
		if err := (Renderer{}).Render(context.Background(), c, d); err != nil {
			t.Fatal(err)
		}
		style := attr(overlaysIn(c)[0], "style")
		if !strings.HasSuffix(style, overlay.Placement(overlay.TopLeft)) {
			t.Errorf("position %q: style %q does not end with top-left rule", pos, style)
		}
	}
}

func TestNode_Sizes(t *testing.T) {
	tests := map[overlay.Size]string{
		overlay.SizeSmall:  "font-size: 10px",
		overlay.SizeMedium: "font-size: 12px",
		overlay.SizeLarge:  "font-size: 14px",
		"giant":            "font-size: 12px",
	}
	for size, want := range tests {
		n := Node(overlay.Descriptor{Kind: overlay.KindText, Text: "X", Size: size, Color: "red"})
		if !strings.Contains(n.LabelStyle, want) {
			t.Errorf("size %q: label style %q missing %q", size, n.LabelStyle, want)
		}
	}
}
