package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ideaspark/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	broadSearchLimit    = 30
	broadResultLimit    = 20
	targetedSearchLimit = 10
	targetedContentMax  = 500
	minPersonalContent  = 100
	minCommentLength    = 10
	commentsFetched     = 10
	commentsIncluded    = 5
	searchConcurrency   = 4
)

var businessIndicators = []string{
	"hiring", "job opening", "position available", "we are looking for",
	"company", "business", "startup", "entrepreneur", "looking to hire",
	"recruiting", "employment", "career opportunity", "join our team",
	"apply now", "submit your resume", "send your cv",
}

var problemIndicators = []string{
	"i have", "i'm having", "i am having", "i struggle", "i'm struggling",
	"i need help", "i can't", "i cannot", "i'm stuck", "i feel",
	"my problem", "my issue", "my pain", "my struggle", "help me",
	"advice needed", "anyone else", "does anyone", "how do you",
	"what should i", "what can i", "feeling", "experiencing",
}

var helpWords = []string{"help", "problem", "issue", "struggle", "question", "advice", "recommendation"}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// isPersonalProblem 过滤招聘/公司帖，保留个人求助帖
// isPersonalProblem drops hiring and company posts and keeps first-person problem posts
func isPersonalProblem(s Submission) bool {
	title := strings.ToLower(s.Title)
	content := strings.ToLower(s.SelfText)
	if containsAny(title, businessIndicators) || containsAny(content, businessIndicators) {
		return false
	}
	if containsAny(title, problemIndicators) || containsAny(content, problemIndicators) {
		return true
	}
	return len(s.SelfText) > minPersonalContent
}

// broadSearch searches all of Reddit, keeps personal problem posts with
// their top comments and returns the most engaged ones.
func broadSearch(ctx context.Context, reddit RedditClient, query string, logger zerolog.Logger) ([]session.RedditPost, error) {
	results, err := reddit.Search(ctx, "all", query, broadSearchLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	posts := make([]session.RedditPost, 0, len(results))
	for _, s := range results {
		u := s.URL()
		if _, dup := seen[u]; dup || !isPersonalProblem(s) {
			continue
		}
		seen[u] = struct{}{}

		content := s.SelfText
		comments, err := reddit.Comments(ctx, s.Permalink, commentsFetched)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug().Err(err).Str("url", u).Msg("fetch comments")
		}
		content += formatComments(comments)

		posts = append(posts, session.RedditPost{
			URL:         u,
			Title:       s.Title,
			Content:     content,
			Subreddit:   s.Subreddit,
			Score:       s.Score,
			NumComments: s.NumComments,
		})
		if len(posts) >= broadSearchLimit {
			break
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Score+posts[i].NumComments > posts[j].Score+posts[j].NumComments
	})
	if len(posts) > broadResultLimit {
		posts = posts[:broadResultLimit]
	}
	return posts, nil
}

func formatComments(comments []Comment) string {
	kept := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if len(strings.TrimSpace(c.Body)) > minCommentLength {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) > commentsIncluded {
		kept = kept[:commentsIncluded]
	}
	var b strings.Builder
	b.WriteString("\n\n--- COMMENTS ---\n")
	for _, c := range kept {
		author := c.Author
		if author == "" {
			author = "[deleted]"
		}
		fmt.Fprintf(&b, "\nComment by %s (score: %d):\n%s\n", author, c.Score, c.Body)
	}
	return b.String()
}

// targetedSearch queries each subreddit concurrently and keeps help-style
// posts. A failing subreddit is logged and skipped; result order follows
// the subreddit order.
func targetedSearch(ctx context.Context, reddit RedditClient, query string, subreddits []string, logger zerolog.Logger) ([]session.RedditPost, error) {
	perSub := make([][]session.RedditPost, len(subreddits))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchConcurrency)
	for i, name := range subreddits {
		g.Go(func() error {
			results, err := reddit.Search(gctx, name, query, targetedSearchLimit)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn().Err(err).Str("subreddit", name).Msg("targeted search")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			posts := make([]session.RedditPost, 0, len(results))
			for _, s := range results {
				if !containsAny(strings.ToLower(s.Title), helpWords) {
					continue
				}
				posts = append(posts, session.RedditPost{
					URL:         s.URL(),
					Title:       s.Title,
					Content:     truncateRunes(s.SelfText, targetedContentMax),
					Subreddit:   name,
					Score:       s.Score,
					NumComments: s.NumComments,
				})
			}
			perSub[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]session.RedditPost, 0)
	for _, posts := range perSub {
		for _, p := range posts {
			if _, dup := seen[p.URL]; dup {
				continue
			}
			seen[p.URL] = struct{}{}
			out = append(out, p)
		}
	}
	if failed > 0 {
		logger.Info().Int("failed", failed).Int("subreddits", len(subreddits)).Msg("targeted search finished with skipped subreddits")
	}
	return out, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
