package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true, "stylesheets": true, "fetch": true}
	tests := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Media", false},
		{"Stylesheet", false},
		{"Fetch", false},
		{"Document", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(set, tt.resType); got != tt.want {
			t.Errorf("shouldBlock(%q) = %v, want %v", tt.resType, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.Headless == nil || !*c.Headless {
		t.Fatal("Headless should default to true")
	}
	if c.NavTimeout <= 0 {
		t.Fatal("NavTimeout not defaulted")
	}
	if c.Logger == nil {
		t.Fatal("Logger not defaulted")
	}
}
