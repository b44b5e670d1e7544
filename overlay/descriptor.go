// Package overlay defines the overlay descriptor model shared by the
// decoration engine and the configuration store: kinds, anchors, sizes,
// the presence rule, and the placement table.
package overlay

import (
	"regexp"
	"strings"
)

// ProductID is the opaque handle correlating a storefront page with its
// configuration entry. The empty string means "no identity".
type ProductID string

// Kind is the overlay flavour.
type Kind string

const (
	KindText  Kind = "text"
	KindBadge Kind = "badge"
	KindImage Kind = "image"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindBadge, KindImage:
		return true
	}
	return false
}

// Size controls label padding and font size.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Valid reports whether s is one of the known sizes.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Defaults applied by Normalize.
const (
	DefaultPosition = TopLeft
	DefaultColor    = "#ff0000"
	DefaultSize     = SizeMedium
)

// Descriptor is the configuration payload controlling an overlay's
// appearance and placement. Values are immutable once built.
type Descriptor struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	Position Anchor `json:"position"`
	Color    string `json:"color"`
	Size     Size   `json:"size"`
}

// Present reports whether the descriptor should produce an overlay.
// Kind and Text are both required; everything else defaults.
func (d Descriptor) Present() bool {
	return strings.TrimSpace(string(d.Kind)) != "" && strings.TrimSpace(d.Text) != ""
}

// Normalize returns a copy with position, color and size defaulted when
// absent or unrecognized. Kind and Text are returned as-is.
func (d Descriptor) Normalize() Descriptor {
	if !d.Position.Valid() {
		d.Position = DefaultPosition
	}
	if !ValidColor(d.Color) {
		d.Color = DefaultColor
	}
	if !d.Size.Valid() {
		d.Size = DefaultSize
	}
	return d
}

var (
	hexColor   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor  = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\(\s*[0-9.]+%?\s*(?:[,\s/]\s*[0-9.]+%?\s*){2,3}\)$`)
	namedColor = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

// ValidColor reports whether c is a CSS color the renderer is willing to
// put into an inline style. Anything that could smuggle extra declarations
// is rejected.
func ValidColor(c string) bool {
	c = strings.TrimSpace(c)
	if c == "" {
		return false
	}
	return hexColor.MatchString(c) || funcColor.MatchString(c) || namedColor.MatchString(c)
}
