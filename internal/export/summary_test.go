package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ideaspark/internal/session"
)

func summaryState() session.State {
	s := session.Empty()
	s.Stage = session.StageSummary
	s.Profile = session.UserProfile{Interest: "Other", InterestOther: "Gardening", Skill: "Coding", Details: "weekends"}
	s.SelectedNiche = "Smart irrigation"
	s.Demand = &session.DemandSeries{Labels: []string{"Jan", "Feb"}, SearchVolume: []float64{50, 62.5}, Trend: "Growing"}
	s.SelectedRedditPosts = []session.RedditPost{{URL: "https://reddit.com/x", Title: "Watering is hard"}}
	s.PrioritizedPainPoints = []string{"forgetting to water", "overwatering"}
	s.BusinessIdeas = []session.BusinessIdea{
		{Name: "DripBot", Description: "automated drip kit"},
		{Name: "SoilSense", Description: "moisture alerts"},
	}
	s.IdeaRatings = map[string]int{"DripBot": 5}
	return s
}

func TestSummary(t *testing.T) {
	got := Summary(summaryState())
	wants := []string{
		"IdeaSpark Business Idea Summary\n",
		"- Interest: Gardening\n",
		"- Skill: Coding\n",
		"- Details: weekends\n",
		"Niche: Smart irrigation\n",
		"Demand: trend=Growing, Jan=50, Feb=62.5\n",
		"Watering is hard (https://reddit.com/x)\n",
		"forgetting to water\noverwatering\n",
		"DripBot: automated drip kit\nRating: 5\n",
		"SoilSense: moisture alerts\nRating: Not rated\n",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_EmptyState(t *testing.T) {
	got := Summary(session.Empty())
	if !strings.Contains(got, "Demand: n/a\n") || !strings.HasSuffix(got, "Ideas:\n") {
		t.Fatalf("unexpected empty summary:\n%s", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, summaryState())
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Fatalf("path=%q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "Rating: 5") {
		t.Fatalf("written summary missing rating")
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(summaryState())
	for _, want := range []string{"# IdeaSpark Business Idea Summary", "[Watering is hard](https://reddit.com/x)", "1. forgetting to water", "### DripBot", "*Rating:* Not rated"} {
		if !strings.Contains(got, want) {
			t.Fatalf("markdown missing %q:\n%s", want, got)
		}
	}
}
