package overlay

import "encoding/json"

// Response is the read endpoint's JSON body. A nil Overlay encodes as
// {"overlay": null}, meaning "no overlay".
type Response struct {
	Overlay *Descriptor `json:"overlay"`
}

// UnmarshalJSON accepts "type" as an alias of "kind"; older payloads used it.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var w struct {
		Kind     string `json:"kind"`
		Type     string `json:"type"`
		Text     string `json:"text"`
		Position string `json:"position"`
		Color    string `json:"color"`
		Size     string `json:"size"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Kind == "" {
		w.Kind = w.Type
	}
	*d = Descriptor{
		Kind:     Kind(w.Kind),
		Text:     w.Text,
		Position: Anchor(w.Position),
		Color:    w.Color,
		Size:     Size(w.Size),
	}
	return nil
}
