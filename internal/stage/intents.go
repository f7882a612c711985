package stage

import (
	"context"
	"strings"

	"ideaspark/internal/ranking"
	"ideaspark/internal/session"

	"golang.org/x/sync/errgroup"
)

const (
	intentAdvance        = "advance"
	intentBack           = "back"
	intentReset          = "reset"
	intentSetProfile     = "set-profile"
	intentSelectNiche    = "select-niche"
	intentToggleSub      = "toggle-subreddit"
	intentSetQuery       = "set-search-query"
	intentSearchBroad    = "search-broad"
	intentSearchTargeted = "search-targeted"
	intentTogglePost     = "toggle-post"
	intentReorder        = "reorder"
	intentPrioritize     = "prioritize"
	intentRate           = "rate"
	intentCredentials    = "configure-credentials"
)

// Advance evaluates the current stage's guard, runs its gateway effect if
// any, and moves to the next stage.
func (c *Controller) Advance(ctx context.Context) (session.State, error) {
	switch c.Snapshot().Stage {
	case session.StageProfile:
		return call(c, ctx, intentAdvance, stageGuard(session.StageProfile),
			func(ctx context.Context, s session.State) ([]string, error) {
				return c.gw.GenerateNiches(ctx, s.Profile)
			},
			func(s *session.State, niches []string) error {
				s.Niches = niches
				if !contains(niches, s.SelectedNiche) {
					s.SelectedNiche = ""
				}
				s.Stage = session.StageNiche
				return nil
			})

	case session.StageNiche:
		return call(c, ctx, intentAdvance, stageGuard(session.StageNiche),
			func(ctx context.Context, s session.State) (session.DemandSeries, error) {
				return c.gw.ValidateDemand(ctx, s.SelectedNiche)
			},
			func(s *session.State, d session.DemandSeries) error {
				s.Demand = &d
				s.Stage = session.StageDemand
				return nil
			})

	case session.StageDemand:
		return call(c, ctx, intentAdvance, stageGuard(session.StageDemand), c.fetchSubreddits,
			func(s *session.State, r subredditLists) error {
				s.SuggestedSubreddits = r.suggested
				s.AllSubreddits = r.all
				s.SelectedSubreddits = subredditNames(r.suggested)
				s.Stage = session.StageSubreddits
				return nil
			})

	case session.StageSearch:
		return call(c, ctx, intentAdvance, stageGuard(session.StageSearch),
			func(ctx context.Context, s session.State) (session.PainPointAnalysis, error) {
				contents := make([]string, 0, len(s.SelectedRedditPosts))
				for _, p := range s.SelectedRedditPosts {
					contents = append(contents, p.Content)
				}
				return c.gw.ProcessPainPoints(ctx, contents)
			},
			func(s *session.State, a session.PainPointAnalysis) error {
				s.Analysis = &a
				s.Stage = session.StageAnalysis
				return nil
			})

	case session.StageAnalysis:
		var top []session.PainPoint
		return call(c, ctx, intentAdvance, stageGuard(session.StageAnalysis),
			func(ctx context.Context, s session.State) ([]session.BusinessIdea, error) {
				top = ranking.SelectTopPainPoints(s.Analysis, s.SelectedRedditPosts, ranking.DefaultTopK)
				return c.gw.GenerateIdeas(ctx, top, s.Profile)
			},
			func(s *session.State, ideas []session.BusinessIdea) error {
				s.BusinessIdeas = ideas
				if len(s.PrioritizedPainPoints) == 0 {
					s.PrioritizedPainPoints = ranking.PointTexts(top)
				}
				s.Stage = session.StageIdeas
				return nil
			})

	default:
		// Subreddit selection, ideas and summary have no gateway effect.
		return c.mutate(intentAdvance, func(s *session.State) error {
			if err := checkAdvance(*s); err != nil {
				return err
			}
			s.Stage++
			return nil
		})
	}
}

// stageGuard checks that the state is still at want and its advance guard holds.
func stageGuard(want session.Stage) func(session.State) error {
	return allOf(atStage(want), checkAdvance)
}

type subredditLists struct {
	suggested []session.SubredditInfo
	all       []session.SubredditInfo
}

func (c *Controller) fetchSubreddits(ctx context.Context, s session.State) (subredditLists, error) {
	var out subredditLists
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, err := c.gw.RelevantSubreddits(gctx, s.Profile)
		out.suggested = subs
		return err
	})
	g.Go(func() error {
		subs, err := c.gw.AllSubreddits(gctx)
		out.all = subs
		return err
	})
	if err := g.Wait(); err != nil {
		return subredditLists{}, err
	}
	return out, nil
}

// Back moves to the fixed predecessor of the current stage. Collected data
// is kept.
func (c *Controller) Back() (session.State, error) {
	return c.mutate(intentBack, func(s *session.State) error {
		target, ok := BackTarget(s.Stage)
		if !ok {
			return invalid(s.Stage, "no previous stage")
		}
		s.Stage = target
		return nil
	})
}

// Reset discards the session and clears the persisted snapshot.
func (c *Controller) Reset() (session.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return c.state.Clone(), &BusyError{Intent: intentReset}
	}
	c.state = session.Empty()
	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("clear progress failed")
	}
	c.logger.Info().Msg("session reset")
	return c.state.Clone(), nil
}

// SetProfile replaces the profile.
func (c *Controller) SetProfile(p session.UserProfile) (session.State, error) {
	return c.mutate(intentSetProfile, func(s *session.State) error {
		s.Profile = p
		return nil
	})
}

// SelectNiche selects one of the generated niches. Only at the niche stage.
func (c *Controller) SelectNiche(niche string) (session.State, error) {
	return c.mutate(intentSelectNiche, func(s *session.State) error {
		if err := atStage(session.StageNiche)(*s); err != nil {
			return err
		}
		if !contains(s.Niches, niche) {
			return invalid(s.Stage, "unknown niche %q", niche)
		}
		s.SelectedNiche = niche
		return nil
	})
}

// ToggleSubreddit adds or removes a subreddit from the selection. Only at
// the subreddit stage.
func (c *Controller) ToggleSubreddit(name string) (session.State, error) {
	return c.mutate(intentToggleSub, func(s *session.State) error {
		if err := atStage(session.StageSubreddits)(*s); err != nil {
			return err
		}
		if !s.HasSubreddit(name) {
			return invalid(s.Stage, "unknown subreddit %q", name)
		}
		if idx := indexOf(s.SelectedSubreddits, name); idx >= 0 {
			s.SelectedSubreddits = append(s.SelectedSubreddits[:idx], s.SelectedSubreddits[idx+1:]...)
			return nil
		}
		s.SelectedSubreddits = append(s.SelectedSubreddits, name)
		return nil
	})
}

// SetSearchQuery stores the Reddit search query.
func (c *Controller) SetSearchQuery(q string) (session.State, error) {
	return c.mutate(intentSetQuery, func(s *session.State) error {
		s.RedditSearchQuery = q
		return nil
	})
}

// SearchBroad runs a site-wide Reddit search for the query. Results replace
// the previous ones and the post selection is cleared.
func (c *Controller) SearchBroad(ctx context.Context) (session.State, error) {
	return call(c, ctx, intentSearchBroad, allOf(atStage(session.StageSearch), needQuery),
		func(ctx context.Context, s session.State) ([]session.RedditPost, error) {
			return c.gw.SearchReddit(ctx, strings.TrimSpace(s.RedditSearchQuery))
		},
		applyResults)
}

// SearchTargeted searches the selected subreddits for the query.
func (c *Controller) SearchTargeted(ctx context.Context) (session.State, error) {
	needSubs := func(s session.State) error {
		if len(s.SelectedSubreddits) == 0 {
			return invalid(s.Stage, "select at least one subreddit")
		}
		return nil
	}
	return call(c, ctx, intentSearchTargeted, allOf(atStage(session.StageSearch), needQuery, needSubs),
		func(ctx context.Context, s session.State) ([]session.RedditPost, error) {
			return c.gw.SearchRedditTargeted(ctx, strings.TrimSpace(s.RedditSearchQuery), s.SelectedSubreddits)
		},
		applyResults)
}

func needQuery(s session.State) error {
	if strings.TrimSpace(s.RedditSearchQuery) == "" {
		return invalid(s.Stage, "enter a search query")
	}
	return nil
}

func applyResults(s *session.State, posts []session.RedditPost) error {
	s.RedditSearchResults = posts
	s.SelectedRedditPosts = []session.RedditPost{}
	return nil
}

// TogglePost selects or deselects a search result by url. Only at the
// search stage.
func (c *Controller) TogglePost(url string) (session.State, error) {
	return c.mutate(intentTogglePost, func(s *session.State) error {
		if err := atStage(session.StageSearch)(*s); err != nil {
			return err
		}
		post, ok := s.PostByURL(url)
		if !ok {
			return invalid(s.Stage, "unknown post %q", url)
		}
		for i, p := range s.SelectedRedditPosts {
			if p.URL == url {
				s.SelectedRedditPosts = append(s.SelectedRedditPosts[:i], s.SelectedRedditPosts[i+1:]...)
				return nil
			}
		}
		s.SelectedRedditPosts = append(s.SelectedRedditPosts, post)
		return nil
	})
}

// Reorder moves a prioritized pain point from dragIndex to hoverIndex.
func (c *Controller) Reorder(dragIndex, hoverIndex int) (session.State, error) {
	return c.mutate(intentReorder, func(s *session.State) error {
		out, err := ranking.Reorder(s.PrioritizedPainPoints, dragIndex, hoverIndex)
		if err != nil {
			return invalid(s.Stage, "%v", err)
		}
		s.PrioritizedPainPoints = out
		return nil
	})
}

// Prioritize appends a pain point to the prioritized list if absent.
func (c *Controller) Prioritize(point string) (session.State, error) {
	point = strings.TrimSpace(point)
	return c.mutate(intentPrioritize, func(s *session.State) error {
		if point == "" {
			return invalid(s.Stage, "empty pain point")
		}
		if !contains(s.PrioritizedPainPoints, point) {
			s.PrioritizedPainPoints = append(s.PrioritizedPainPoints, point)
		}
		return nil
	})
}

// Rate records a 1-5 rating for a generated idea.
func (c *Controller) Rate(ideaName string, rating int) (session.State, error) {
	return c.mutate(intentRate, func(s *session.State) error {
		if rating < 1 || rating > 5 {
			return invalid(s.Stage, "rating %d outside 1..5", rating)
		}
		found := false
		for _, idea := range s.BusinessIdeas {
			if idea.Name == ideaName {
				found = true
				break
			}
		}
		if !found {
			return invalid(s.Stage, "unknown idea %q", ideaName)
		}
		s.IdeaRatings[ideaName] = rating
		return nil
	})
}

// ConfigureCredentials forwards provider credentials to the service. State
// is not touched.
func (c *Controller) ConfigureCredentials(ctx context.Context, creds session.Credentials) error {
	_, err := call(c, ctx, intentCredentials, nil,
		func(ctx context.Context, _ session.State) (struct{}, error) {
			return struct{}{}, c.gw.ConfigureCredentials(ctx, creds)
		},
		nil)
	return err
}

func contains(list []string, v string) bool {
	return indexOf(list, v) >= 0
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

func subredditNames(subs []session.SubredditInfo) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Name)
	}
	return out
}
