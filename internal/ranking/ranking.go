// Package ranking selects the pain points that feed idea generation and
// provides the reorder primitive used for manual prioritization.
package ranking

import (
	"sort"

	"ideaspark/internal/session"
)

const (
	// DefaultTopK is how many pain points are handed to idea generation.
	DefaultTopK = 3

	fallbackScore    = 7
	fallbackQuoteLen = 200
)

// SelectTopPainPoints 按综合分选出前 k 个痛点；无聚类时回退到所选帖子
// SelectTopPainPoints returns the k highest-scoring pain points across all
// clusters. Ties keep flattened cluster order. With no clusters it falls back
// to synthesizing pain points from the first k posts.
func SelectTopPainPoints(analysis *session.PainPointAnalysis, fallbackPosts []session.RedditPost, k int) []session.PainPoint {
	if k <= 0 {
		return []session.PainPoint{}
	}
	if analysis == nil || len(analysis.Clusters) == 0 {
		return fromPosts(fallbackPosts, k)
	}

	flat := make([]session.PainPoint, 0)
	for _, cluster := range analysis.Clusters {
		flat = append(flat, cluster.PainPoints...)
	}

	// Stable: downstream prompts depend on order among equal scores.
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].Composite() > flat[j].Composite()
	})

	if len(flat) > k {
		flat = flat[:k]
	}
	return flat
}

func fromPosts(posts []session.RedditPost, k int) []session.PainPoint {
	n := len(posts)
	if n > k {
		n = k
	}
	out := make([]session.PainPoint, 0, n)
	for _, post := range posts[:n] {
		out = append(out, session.PainPoint{
			Point:            post.Title,
			Quote:            truncateRunes(post.Content, fallbackQuoteLen),
			CurrentSolutions: []string{},
			EmotionIntensity: fallbackScore,
			SolutionGap:      fallbackScore,
		})
	}
	return out
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// PointTexts returns the text of each pain point, in order.
func PointTexts(points []session.PainPoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.Point)
	}
	return out
}
