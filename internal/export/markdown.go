package export

import (
	"fmt"
	"strings"

	"ideaspark/internal/session"
)

// Markdown renders the summary as markdown for the terminal preview.
func Markdown(s session.State) string {
	var b strings.Builder
	b.WriteString("# IdeaSpark Business Idea Summary\n\n")

	b.WriteString("## Profile\n\n")
	fmt.Fprintf(&b, "- **Interest:** %s\n", orDash(s.Profile.ResolvedInterest()))
	fmt.Fprintf(&b, "- **Skill:** %s\n", orDash(s.Profile.ResolvedSkill()))
	fmt.Fprintf(&b, "- **Problem:** %s\n", orDash(s.Profile.ResolvedProblem()))
	fmt.Fprintf(&b, "- **Details:** %s\n\n", orDash(s.Profile.Details))

	fmt.Fprintf(&b, "## Niche\n\n%s\n\n", orDash(s.SelectedNiche))
	fmt.Fprintf(&b, "## Demand\n\n%s\n\n", demandLine(s.Demand))

	b.WriteString("## Selected Reddit Posts\n\n")
	for _, p := range s.SelectedRedditPosts {
		fmt.Fprintf(&b, "- [%s](%s)\n", p.Title, p.URL)
	}
	b.WriteString("\n## Pain Points\n\n")
	for i, p := range s.PrioritizedPainPoints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	b.WriteString("\n## Ideas\n\n")
	for _, idea := range s.BusinessIdeas {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", idea.Name, idea.Description)
		fmt.Fprintf(&b, "*Rating:* %s\n\n", Rating(s.IdeaRatings, idea.Name))
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
