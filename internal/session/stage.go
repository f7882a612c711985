package session

import "fmt"

// Stage is one step of the fixed eight-step research workflow.
type Stage int

const (
	StageProfile Stage = iota
	StageNiche
	StageDemand
	StageSubreddits
	StageSearch
	StageAnalysis
	StageIdeas
	StageSummary
)

// StageCount is the number of stages in the workflow.
const StageCount = int(StageSummary) + 1

var stageNames = [...]string{
	StageProfile:    "profile",
	StageNiche:      "niche",
	StageDemand:     "demand",
	StageSubreddits: "subreddits",
	StageSearch:     "search",
	StageAnalysis:   "analysis",
	StageIdeas:      "ideas",
	StageSummary:    "summary",
}

// ParseStage converts a persisted index into a Stage, rejecting out-of-range values.
func ParseStage(i int) (Stage, error) {
	if i < 0 || i >= StageCount {
		return StageProfile, fmt.Errorf("stage %d out of range [0,%d)", i, StageCount)
	}
	return Stage(i), nil
}

func (s Stage) Valid() bool {
	return s >= StageProfile && s <= StageSummary
}

func (s Stage) IsTerminal() bool {
	return s == StageSummary
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Progress returns the completed fraction of the workflow in percent.
func (s Stage) Progress() float64 {
	return float64(s) / float64(StageCount) * 100
}

// AllStages returns every stage in workflow order.
func AllStages() []Stage {
	out := make([]Stage, 0, StageCount)
	for i := 0; i < StageCount; i++ {
		out = append(out, Stage(i))
	}
	return out
}
