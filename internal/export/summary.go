// Package export renders the session into the downloadable plain-text
// summary and a markdown preview of the same content.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ideaspark/internal/session"
)

// FileName is the name of the summary artifact.
const FileName = "IdeaSpark_Summary.txt"

const notRated = "Not rated"

// Summary renders the plain-text summary artifact.
func Summary(s session.State) string {
	var b strings.Builder
	b.WriteString("IdeaSpark Business Idea Summary\n")
	b.WriteString("Profile:\n")
	fmt.Fprintf(&b, "- Interest: %s\n", s.Profile.ResolvedInterest())
	fmt.Fprintf(&b, "- Skill: %s\n", s.Profile.ResolvedSkill())
	fmt.Fprintf(&b, "- Problem: %s\n", s.Profile.ResolvedProblem())
	fmt.Fprintf(&b, "- Details: %s\n", s.Profile.Details)
	fmt.Fprintf(&b, "Niche: %s\n", s.SelectedNiche)
	fmt.Fprintf(&b, "Demand: %s\n", demandLine(s.Demand))

	b.WriteString("Selected Reddit Posts:\n")
	for _, p := range s.SelectedRedditPosts {
		fmt.Fprintf(&b, "%s (%s)\n", p.Title, p.URL)
	}

	b.WriteString("Pain Points:\n")
	for _, p := range s.PrioritizedPainPoints {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	b.WriteString("Ideas:\n")
	for _, idea := range s.BusinessIdeas {
		fmt.Fprintf(&b, "%s: %s\n", idea.Name, idea.Description)
		fmt.Fprintf(&b, "Rating: %s\n", Rating(s.IdeaRatings, idea.Name))
	}
	return b.String()
}

// Rating formats the stored rating for an idea, or "Not rated".
func Rating(ratings map[string]int, name string) string {
	if r, ok := ratings[name]; ok && r > 0 {
		return strconv.Itoa(r)
	}
	return notRated
}

func demandLine(d *session.DemandSeries) string {
	if d == nil {
		return "n/a"
	}
	parts := make([]string, 0, len(d.Labels)+1)
	if d.Trend != "" {
		parts = append(parts, "trend="+d.Trend)
	}
	for i, label := range d.Labels {
		if i >= len(d.SearchVolume) {
			break
		}
		parts = append(parts, label+"="+strconv.FormatFloat(d.SearchVolume[i], 'f', -1, 64))
	}
	if len(parts) == 0 {
		return "n/a"
	}
	return strings.Join(parts, ", ")
}

// WriteFile writes the summary into dir and returns the file path.
func WriteFile(dir string, s session.State) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(Summary(s)), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
