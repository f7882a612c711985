// Package gateway is the request/response boundary to the local IdeaSpark
// service that computes niches, demand, subreddits, Reddit search results,
// pain-point clusters and business ideas.
package gateway

import (
	"context"

	"ideaspark/internal/session"
)

// Operation names, used in errors and logs.
const (
	OpGenerateNiches       = "generate-niches"
	OpValidateDemand       = "validate-demand"
	OpRelevantSubreddits   = "get-relevant-subreddits"
	OpAllSubreddits        = "get-all-subreddits"
	OpSearchReddit         = "search-reddit"
	OpSearchRedditTargeted = "search-reddit-targeted"
	OpProcessPainPoints    = "process-pain-points"
	OpGenerateIdeas        = "generate-ideas"
	OpConfigureCredentials = "configure-api"
)

// Gateway exposes one method per external capability. Implementations
// return a *ServiceError on any transport or service failure and never
// return partially populated results alongside an error.
type Gateway interface {
	GenerateNiches(ctx context.Context, profile session.UserProfile) ([]string, error)
	ValidateDemand(ctx context.Context, niche string) (session.DemandSeries, error)
	RelevantSubreddits(ctx context.Context, profile session.UserProfile) ([]session.SubredditInfo, error)
	AllSubreddits(ctx context.Context) ([]session.SubredditInfo, error)
	SearchReddit(ctx context.Context, niche string) ([]session.RedditPost, error)
	SearchRedditTargeted(ctx context.Context, query string, subreddits []string) ([]session.RedditPost, error)
	ProcessPainPoints(ctx context.Context, contents []string) (session.PainPointAnalysis, error)
	GenerateIdeas(ctx context.Context, points []session.PainPoint, profile session.UserProfile) ([]session.BusinessIdea, error)
	ConfigureCredentials(ctx context.Context, creds session.Credentials) error
}
