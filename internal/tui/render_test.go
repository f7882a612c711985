package tui

import (
	"strings"
	"testing"

	"ideaspark/internal/session"
)

func TestRenderMarkdown_Basic(t *testing.T) {
	input := "# Hello\n\nThis is **bold** text."
	result := RenderMarkdown(input, 80)
	if result == "" {
		t.Fatal("RenderMarkdown returned empty")
	}
	if !strings.Contains(result, "Hello") {
		t.Fatalf("result should contain 'Hello': %q", result)
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	if RenderMarkdown("", 80) != "" {
		t.Fatal("empty input should return empty")
	}
	if RenderMarkdown("  ", 80) != "" {
		t.Fatal("whitespace input should return empty")
	}
}

func TestRenderDemand(t *testing.T) {
	theme := DarkTheme()
	if got := renderDemand(nil, 60, theme); !strings.Contains(got, "No demand data") {
		t.Fatalf("unexpected nil render: %q", got)
	}
	d := &session.DemandSeries{
		Labels:       []string{"Jan 2024", "Feb 2024"},
		SearchVolume: []float64{50, 100},
		Trend:        "Growing",
	}
	got := renderDemand(d, 60, theme)
	for _, want := range []string{"Growing", "Jan 2024", "Feb 2024", "100"} {
		if !strings.Contains(got, want) {
			t.Fatalf("render missing %q: %q", want, got)
		}
	}
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{renderStars(0), "not rated"},
		{renderStars(3), "★★★☆☆"},
		{renderProgressBar(50, 10), "█████░░░░░"},
		{renderProgressBar(150, 4), "████"},
		{truncate("short", 20), "short"},
		{truncate(strings.Repeat("a", 30), 10), strings.Repeat("a", 9) + "…"},
		{orNone(""), "none"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d: got %q want %q", i, tt.got, tt.want)
		}
	}
}

func TestSidebarWidth(t *testing.T) {
	if sidebarWidth(60) != 0 {
		t.Fatalf("narrow terminals have no sidebar")
	}
	if w := sidebarWidth(100); w != 25 {
		t.Fatalf("sidebarWidth(100)=%d", w)
	}
	if w := sidebarWidth(400); w != 40 {
		t.Fatalf("sidebarWidth(400)=%d", w)
	}
}
