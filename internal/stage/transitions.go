package stage

import "ideaspark/internal/session"

// backTargets is the fixed predecessor of each stage. Back from analysis
// returns to demand so the subreddit list is regenerated; back from ideas
// returns to subreddit selection.
var backTargets = map[session.Stage]session.Stage{
	session.StageNiche:      session.StageProfile,
	session.StageDemand:     session.StageNiche,
	session.StageSubreddits: session.StageDemand,
	session.StageSearch:     session.StageSubreddits,
	session.StageAnalysis:   session.StageDemand,
	session.StageIdeas:      session.StageSubreddits,
	session.StageSummary:    session.StageIdeas,
}

// BackTarget returns the stage Back moves to from s.
func BackTarget(s session.Stage) (session.Stage, bool) {
	t, ok := backTargets[s]
	return t, ok
}

// checkAdvance evaluates the guard for leaving the current stage.
func checkAdvance(s session.State) error {
	switch s.Stage {
	case session.StageProfile:
		if !s.Profile.HasInterest() || !s.Profile.HasSkill() {
			return invalid(s.Stage, "an interest and a skill are required")
		}
	case session.StageNiche:
		if s.SelectedNiche == "" {
			return invalid(s.Stage, "select a niche first")
		}
	case session.StageDemand:
	case session.StageSubreddits:
		if len(s.SelectedSubreddits) == 0 {
			return invalid(s.Stage, "select at least one subreddit")
		}
	case session.StageSearch:
		if len(s.SelectedRedditPosts) == 0 {
			return invalid(s.Stage, "select at least one post")
		}
	case session.StageAnalysis:
		if s.ClusterCount() == 0 {
			return invalid(s.Stage, "pain-point analysis produced no clusters")
		}
	case session.StageIdeas:
	case session.StageSummary:
		return invalid(s.Stage, "summary is the last stage")
	default:
		return invalid(s.Stage, "unknown stage")
	}
	return nil
}
