package inspector

import (
	"testing"

	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/game"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag     string
		widget  Widget
		options map[string]string
	}{
		{"", WidgetAuto, map[string]string{}},
		{"bar", WidgetBar, map[string]string{}},
		{"bar,max:200", WidgetBar, map[string]string{"max": "200"}},
		{"label, fmt:%.1f", WidgetLabel, map[string]string{"fmt": "%.1f"}},
		{"skip", WidgetSkip, map[string]string{}},
		{"bogus", WidgetAuto, map[string]string{}},
	}
	for _, tt := range tests {
		widget, options := ParseTag(tt.tag)
		if widget != tt.widget {
			t.Errorf("ParseTag(%q) widget = %v, want %v", tt.tag, widget, tt.widget)
		}
		if len(options) != len(tt.options) {
			t.Errorf("ParseTag(%q) options = %v, want %v", tt.tag, options, tt.options)
			continue
		}
		for k, v := range tt.options {
			if options[k] != v {
				t.Errorf("ParseTag(%q) option %s = %q, want %q", tt.tag, k, options[k], v)
			}
		}
	}
}

func TestExtractFieldsSkipsHidden(t *testing.T) {
	fields := ExtractFields(components.Collider{Radius: 0.2, Mass: 0.1, InvMass: 10, Restitution: 0.5})
	names := make(map[string]bool)
	for _, f := range fields {
		names[f.Name] = true
	}
	if names["InvMass"] || names["InvInertia"] {
		t.Errorf("skip-tagged fields extracted: %v", names)
	}
	for _, want := range []string{"Radius", "Mass", "Restitution", "Friction"} {
		if !names[want] {
			t.Errorf("missing field %s", want)
		}
	}
	if fields[0].Options["fmt"] != "%.2f" {
		t.Errorf("expected Radius fmt option, got %v", fields[0].Options)
	}
}

func TestExtractFieldsNonStruct(t *testing.T) {
	if f := ExtractFields(42); f != nil {
		t.Errorf("expected nil for non-struct, got %v", f)
	}
	var nilInfo *game.BodyInfo
	if s := ExtractSections(nilInfo); s != nil {
		t.Errorf("expected nil for nil pointer, got %v", s)
	}
}

func TestExtractSectionsBodyInfo(t *testing.T) {
	info := game.BodyInfo{
		ID:       7,
		Slot:     2,
		Position: components.Position{X: 1, Y: 2, Z: 3},
		Collider: components.Collider{Radius: 0.2},
		Tint:     components.Tint{R: 0.5, G: 0.25, B: 1, Index: 3},
	}
	sections := ExtractSections(&info)

	if len(sections) == 0 || sections[0].Title != "" || len(sections[0].Fields) != 2 {
		t.Fatalf("expected leading section with ID and Slot, got %+v", sections)
	}

	titles := make(map[string]Section)
	for _, s := range sections[1:] {
		titles[s.Title] = s
	}
	for _, want := range []string{"Position", "Velocity", "Spin", "Collider", "Damping", "Tint"} {
		if _, ok := titles[want]; !ok {
			t.Errorf("missing section %s", want)
		}
	}
	if got := FormatValue(titles["Position"].Fields[2].Value, titles["Position"].Fields[2].Options["fmt"]); got != "3.00" {
		t.Errorf("expected Z formatted as 3.00, got %q", got)
	}
	if titles["Tint"].Fields[0].Widget != WidgetBar {
		t.Error("expected tint channels drawn as bars")
	}
	if PanelHeight(sections) <= HeaderHeight {
		t.Error("panel height should grow with sections")
	}
}

func TestGetMax(t *testing.T) {
	if GetMax(nil) != 1 {
		t.Error("default max should be 1")
	}
	if GetMax(map[string]string{"max": "200"}) != 200 {
		t.Error("expected max 200")
	}
	if GetMax(map[string]string{"max": "nope"}) != 1 {
		t.Error("invalid max should fall back to 1")
	}
}
