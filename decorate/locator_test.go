package decorate

import (
	"context"
	"testing"

	"github.com/hazyhaar/shopoverlay/dom"
)

const detailPage = `<html><body>
<div class="product-image-wrapper" id="scan-only"></div>
<div class="product__media product-media-x" id="both"></div>
<div class="product__image" id="list-only"></div>
<div class="unrelated"></div>
</body></html>`

func ids(t *testing.T, els []dom.Element) []string {
	t.Helper()
	out := make([]string, 0, len(els))
	for _, el := range els {
		v, _, err := el.Attr(context.Background(), "id")
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	return out
}

func TestLocate_DetailUnionDedup(t *testing.T) {
	doc := parse(t, detailPage, "/products/x")
	got, err := NewLocator(LocatorConfig{}).Locate(context.Background(), doc, ScopeDetail)
	if err != nil {
		t.Fatal(err)
	}
	// Allow-list matches first (document order), then scan-only matches.
	want := []string{"both", "list-only", "scan-only"}
	gotIDs := ids(t, got)
	if len(gotIDs) != len(want) {
		t.Fatalf("Locate = %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("Locate = %v, want %v", gotIDs, want)
		}
	}
}

func TestLocate_Listing(t *testing.T) {
	doc := parse(t, `<html><body>
<div class="grid-product" id="a"></div>
<div class="theme-product-item-v2" id="b"></div>
<div class="product-card" id="c"></div>
<div class="product-image" id="not-a-card"></div>
</body></html>`, "/collections/all")
	got, err := NewLocator(LocatorConfig{}).Locate(context.Background(), doc, ScopeListing)
	if err != nil {
		t.Fatal(err)
	}
	gotIDs := ids(t, got)
	if len(gotIDs) != 3 || gotIDs[0] != "a" || gotIDs[1] != "c" || gotIDs[2] != "b" {
		t.Fatalf("Locate = %v, want [a c b]", gotIDs)
	}
}

func TestLocate_CustomConfig(t *testing.T) {
	doc := parse(t, `<html><body><figure class="hero-shot" id="h"></figure><div class="product__media" id="d"></div></body></html>`, "/")
	l := NewLocator(LocatorConfig{DetailSelectors: []string{"figure.hero-shot"}, DetailMarkers: []string{"nothing-here"}})
	got, err := l.Locate(context.Background(), doc, ScopeDetail)
	if err != nil {
		t.Fatal(err)
	}
	if gotIDs := ids(t, got); len(gotIDs) != 1 || gotIDs[0] != "h" {
		t.Fatalf("Locate = %v, want [h]", gotIDs)
	}
}

func TestCardIdentity(t *testing.T) {
	doc := parse(t, `<html><body>
<div class="product-card" id="own" data-product-id="1"><span data-product-id="ignored"></span></div>
<div class="product-card" id="child"><a><span data-product-id="2"></span></a></div>
<div class="product-card" id="none"><img src="x.jpg"></div>
</body></html>`, "/collections/all")
	l := NewLocator(LocatorConfig{})
	ctx := context.Background()

	tests := []struct {
		sel    string
		want   string
		wantOK bool
	}{
		{"#own", "1", true},
		{"#child", "2", true},
		{"#none", "", false},
	}
	for _, tt := range tests {
		got, ok := l.CardIdentity(ctx, first(t, doc, tt.sel))
		if ok != tt.wantOK || string(got) != tt.want {
			t.Errorf("CardIdentity(%s) = %q, %v; want %q, %v", tt.sel, got, ok, tt.want, tt.wantOK)
		}
	}
}
