package configstore

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/shopoverlay/horosafe"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// MaxTextLen is the longest overlay label accepted, in runes.
const MaxTextLen = 64

// ErrInvalid matches every *ValidationError via errors.Is.
var ErrInvalid = errors.New("configstore: invalid overlay")

// UserError is one field-level problem reported back to the operator.
type UserError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a write.
type ValidationError struct {
	Errors []UserError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ue := range e.Errors {
		parts[i] = ue.Field + ": " + ue.Message
	}
	return "configstore: invalid overlay: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// UserErrors extracts field errors from err, or nil.
func UserErrors(err error) []UserError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips any markup from a label and returns plain text. The
// renderer inserts text nodes, so entities are decoded back.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// clean validates d for a write and returns the value to persist.
// Empty fields are allowed: they remove the stored entry.
func clean(id overlay.ProductID, d overlay.Descriptor) (overlay.Descriptor, error) {
	var errs []UserError
	add := func(field, format string, args ...any) {
		errs = append(errs, UserError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := horosafe.ValidateHandle(string(id)); err != nil {
		add("product_id", "must be a non-empty product handle without '/' or control characters")
	}

	out := overlay.Descriptor{
		Kind:     overlay.Kind(strings.TrimSpace(string(d.Kind))),
		Text:     sanitizeText(d.Text),
		Position: overlay.Anchor(strings.TrimSpace(string(d.Position))),
		Color:    strings.TrimSpace(d.Color),
		Size:     overlay.Size(strings.TrimSpace(string(d.Size))),
	}
	if out.Kind != "" && !out.Kind.Valid() {
		add("kind", "must be one of text, badge, image")
	}
	if n := utf8.RuneCountInString(out.Text); n > MaxTextLen {
		add("text", "must be at most %d characters (got %d)", MaxTextLen, n)
	}
	if d.Text != "" && out.Text == "" {
		add("text", "must contain visible text")
	}
	if out.Position != "" && !out.Position.Valid() {
		add("position", "must be one of the nine anchors")
	}
	if out.Color != "" && !overlay.ValidColor(out.Color) {
		add("color", "must be a hex, rgb(), hsl() or named CSS color")
	}
	if out.Size != "" && !out.Size.Valid() {
		add("size", "must be one of small, medium, large")
	}

	if len(errs) > 0 {
		return overlay.Descriptor{}, &ValidationError{Errors: errs}
	}
	return out, nil
}
