// Package gatewaytest provides a function-field Gateway for tests.
package gatewaytest

import (
	"context"

	"ideaspark/internal/gateway"
	"ideaspark/internal/session"
)

// Stub is a gateway.Gateway backed by optional function fields. Unset
// fields return empty results.
type Stub struct {
	GenerateNichesFn       func(ctx context.Context, profile session.UserProfile) ([]string, error)
	ValidateDemandFn       func(ctx context.Context, niche string) (session.DemandSeries, error)
	RelevantSubredditsFn   func(ctx context.Context, profile session.UserProfile) ([]session.SubredditInfo, error)
	AllSubredditsFn        func(ctx context.Context) ([]session.SubredditInfo, error)
	SearchRedditFn         func(ctx context.Context, niche string) ([]session.RedditPost, error)
	SearchRedditTargetedFn func(ctx context.Context, query string, subreddits []string) ([]session.RedditPost, error)
	ProcessPainPointsFn    func(ctx context.Context, contents []string) (session.PainPointAnalysis, error)
	GenerateIdeasFn        func(ctx context.Context, points []session.PainPoint, profile session.UserProfile) ([]session.BusinessIdea, error)
	ConfigureCredentialsFn func(ctx context.Context, creds session.Credentials) error
}

var _ gateway.Gateway = (*Stub)(nil)

func (s *Stub) GenerateNiches(ctx context.Context, profile session.UserProfile) ([]string, error) {
	if s.GenerateNichesFn == nil {
		return []string{}, nil
	}
	return s.GenerateNichesFn(ctx, profile)
}

func (s *Stub) ValidateDemand(ctx context.Context, niche string) (session.DemandSeries, error) {
	if s.ValidateDemandFn == nil {
		return session.DemandSeries{Labels: []string{}, SearchVolume: []float64{}}, nil
	}
	return s.ValidateDemandFn(ctx, niche)
}

func (s *Stub) RelevantSubreddits(ctx context.Context, profile session.UserProfile) ([]session.SubredditInfo, error) {
	if s.RelevantSubredditsFn == nil {
		return []session.SubredditInfo{}, nil
	}
	return s.RelevantSubredditsFn(ctx, profile)
}

func (s *Stub) AllSubreddits(ctx context.Context) ([]session.SubredditInfo, error) {
	if s.AllSubredditsFn == nil {
		return []session.SubredditInfo{}, nil
	}
	return s.AllSubredditsFn(ctx)
}

func (s *Stub) SearchReddit(ctx context.Context, niche string) ([]session.RedditPost, error) {
	if s.SearchRedditFn == nil {
		return []session.RedditPost{}, nil
	}
	return s.SearchRedditFn(ctx, niche)
}

func (s *Stub) SearchRedditTargeted(ctx context.Context, query string, subreddits []string) ([]session.RedditPost, error) {
	if s.SearchRedditTargetedFn == nil {
		return []session.RedditPost{}, nil
	}
	return s.SearchRedditTargetedFn(ctx, query, subreddits)
}

func (s *Stub) ProcessPainPoints(ctx context.Context, contents []string) (session.PainPointAnalysis, error) {
	if s.ProcessPainPointsFn == nil {
		return session.PainPointAnalysis{Clusters: []session.PainPointCluster{}}, nil
	}
	return s.ProcessPainPointsFn(ctx, contents)
}

func (s *Stub) GenerateIdeas(ctx context.Context, points []session.PainPoint, profile session.UserProfile) ([]session.BusinessIdea, error) {
	if s.GenerateIdeasFn == nil {
		return []session.BusinessIdea{}, nil
	}
	return s.GenerateIdeasFn(ctx, points, profile)
}

func (s *Stub) ConfigureCredentials(ctx context.Context, creds session.Credentials) error {
	if s.ConfigureCredentialsFn == nil {
		return nil
	}
	return s.ConfigureCredentialsFn(ctx, creds)
}
