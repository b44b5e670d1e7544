package overlay

// Anchor is one of the nine named placement positions.
type Anchor string

const (
	TopLeft      Anchor = "top-left"
	TopCenter    Anchor = "top-center"
	TopRight     Anchor = "top-right"
	CenterLeft   Anchor = "center-left"
	Center       Anchor = "center"
	CenterRight  Anchor = "center-right"
	BottomLeft   Anchor = "bottom-left"
	BottomCenter Anchor = "bottom-center"
	BottomRight  Anchor = "bottom-right"
)

// Anchors lists every anchor in reading order.
var Anchors = []Anchor{
	TopLeft, TopCenter, TopRight,
	CenterLeft, Center, CenterRight,
	BottomLeft, BottomCenter, BottomRight,
}

var placements = map[Anchor]string{
	TopLeft:      "top: 15px; left: 15px;",
	TopCenter:    "top: 15px; left: 50%; transform: translateX(-50%);",
	TopRight:     "top: 15px; right: 15px;",
	CenterLeft:   "top: 50%; left: 15px; transform: translateY(-50%);",
	Center:       "top: 50%; left: 50%; transform: translate(-50%, -50%);",
	CenterRight:  "top: 50%; right: 15px; transform: translateY(-50%);",
	BottomLeft:   "bottom: 15px; left: 15px;",
	BottomCenter: "bottom: 15px; left: 50%; transform: translateX(-50%);",
	BottomRight:  "bottom: 15px; right: 15px;",
}

// Valid reports whether a is one of the nine anchors.
func (a Anchor) Valid() bool {
	_, ok := placements[a]
	return ok
}

// Placement returns the CSS declarations positioning an overlay at a.
// Unknown anchors fall back to the top-left rule.
func Placement(a Anchor) string {
	if rule, ok := placements[a]; ok {
		return rule
	}
	return placements[TopLeft]
}
