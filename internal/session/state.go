package session

// State 会话快照：整个流程唯一的数据来源
// State is the whole session snapshot and the single source of truth for the workflow
type State struct {
	Stage                 Stage              `json:"step"`
	Profile               UserProfile        `json:"userProfile"`
	Niches                []string           `json:"niches"`
	SelectedNiche         string             `json:"selectedNiche"`
	Demand                *DemandSeries      `json:"demandData"`
	SuggestedSubreddits   []SubredditInfo    `json:"suggestedSubreddits"`
	AllSubreddits         []SubredditInfo    `json:"allSubreddits"`
	SelectedSubreddits    []string           `json:"selectedSubreddits"`
	RedditSearchQuery     string             `json:"redditSearchQuery"`
	RedditSearchResults   []RedditPost       `json:"redditSearchResults"`
	SelectedRedditPosts   []RedditPost       `json:"selectedRedditPosts"`
	PrioritizedPainPoints []string           `json:"prioritizedPainPoints"`
	Analysis              *PainPointAnalysis `json:"painPointAnalysis"`
	BusinessIdeas         []BusinessIdea     `json:"businessIdeas"`
	IdeaRatings           map[string]int     `json:"ideaRatings"`
}

// Empty 初始空状态（阶段 0）
// Empty returns the initial state at the profile stage
func Empty() State {
	return State{
		Stage:                 StageProfile,
		Niches:                []string{},
		SuggestedSubreddits:   []SubredditInfo{},
		AllSubreddits:         []SubredditInfo{},
		SelectedSubreddits:    []string{},
		RedditSearchResults:   []RedditPost{},
		SelectedRedditPosts:   []RedditPost{},
		PrioritizedPainPoints: []string{},
		BusinessIdeas:         []BusinessIdea{},
		IdeaRatings:           map[string]int{},
	}
}

// Normalize 将 nil 集合替换为空集合，保证下游不处理 nil
// Normalize replaces nil collections with empty ones so callers never range over nil maps
func (s State) Normalize() State {
	if s.Niches == nil {
		s.Niches = []string{}
	}
	if s.SuggestedSubreddits == nil {
		s.SuggestedSubreddits = []SubredditInfo{}
	}
	if s.AllSubreddits == nil {
		s.AllSubreddits = []SubredditInfo{}
	}
	if s.SelectedSubreddits == nil {
		s.SelectedSubreddits = []string{}
	}
	if s.RedditSearchResults == nil {
		s.RedditSearchResults = []RedditPost{}
	}
	if s.SelectedRedditPosts == nil {
		s.SelectedRedditPosts = []RedditPost{}
	}
	if s.PrioritizedPainPoints == nil {
		s.PrioritizedPainPoints = []string{}
	}
	if s.BusinessIdeas == nil {
		s.BusinessIdeas = []BusinessIdea{}
	}
	if s.IdeaRatings == nil {
		s.IdeaRatings = map[string]int{}
	}
	return s
}

// Clone 深拷贝，避免快照与控制器内部状态共享底层数组
// Clone deep-copies the state so snapshots never alias controller internals
func (s State) Clone() State {
	out := s
	out.Niches = append([]string{}, s.Niches...)
	out.SuggestedSubreddits = cloneSubreddits(s.SuggestedSubreddits)
	out.AllSubreddits = cloneSubreddits(s.AllSubreddits)
	out.SelectedSubreddits = append([]string{}, s.SelectedSubreddits...)
	out.RedditSearchResults = append([]RedditPost{}, s.RedditSearchResults...)
	out.SelectedRedditPosts = append([]RedditPost{}, s.SelectedRedditPosts...)
	out.PrioritizedPainPoints = append([]string{}, s.PrioritizedPainPoints...)
	if s.Demand != nil {
		d := *s.Demand
		d.Labels = append([]string{}, s.Demand.Labels...)
		d.SearchVolume = append([]float64{}, s.Demand.SearchVolume...)
		out.Demand = &d
	}
	if s.Analysis != nil {
		a := PainPointAnalysis{Clusters: make([]PainPointCluster, len(s.Analysis.Clusters))}
		for i, c := range s.Analysis.Clusters {
			c.Themes = append([]string{}, c.Themes...)
			c.Quotes = append([]string{}, c.Quotes...)
			points := make([]PainPoint, len(c.PainPoints))
			for j, p := range c.PainPoints {
				p.CurrentSolutions = append([]string{}, p.CurrentSolutions...)
				points[j] = p
			}
			c.PainPoints = points
			a.Clusters[i] = c
		}
		out.Analysis = &a
	}
	out.BusinessIdeas = make([]BusinessIdea, len(s.BusinessIdeas))
	for i, idea := range s.BusinessIdeas {
		idea.KeyFeatures = append([]string{}, idea.KeyFeatures...)
		idea.MarketTrends = append([]string{}, idea.MarketTrends...)
		idea.Competition.ExistingSolutions = append([]string{}, idea.Competition.ExistingSolutions...)
		out.BusinessIdeas[i] = idea
	}
	out.IdeaRatings = make(map[string]int, len(s.IdeaRatings))
	for k, v := range s.IdeaRatings {
		out.IdeaRatings[k] = v
	}
	return out
}

func cloneSubreddits(in []SubredditInfo) []SubredditInfo {
	out := make([]SubredditInfo, len(in))
	for i, sub := range in {
		if sub.RelevanceScore != nil {
			score := *sub.RelevanceScore
			sub.RelevanceScore = &score
		}
		out[i] = sub
	}
	return out
}

// HasSubreddit 名称是否在建议或全部列表中
// HasSubreddit reports whether name is in the suggested or full subreddit lists
func (s State) HasSubreddit(name string) bool {
	for _, sub := range s.SuggestedSubreddits {
		if sub.Name == name {
			return true
		}
	}
	for _, sub := range s.AllSubreddits {
		if sub.Name == name {
			return true
		}
	}
	return false
}

// PostByURL 在搜索结果中按 url 查找
// PostByURL looks a post up in the search results by url
func (s State) PostByURL(url string) (RedditPost, bool) {
	for _, p := range s.RedditSearchResults {
		if p.URL == url {
			return p, true
		}
	}
	return RedditPost{}, false
}

// IsPostSelected 帖子是否已选中 / Reports whether the post url is selected
func (s State) IsPostSelected(url string) bool {
	for _, p := range s.SelectedRedditPosts {
		if p.URL == url {
			return true
		}
	}
	return false
}

// IsSubredditSelected reports whether name is in the selected set.
func (s State) IsSubredditSelected(name string) bool {
	for _, n := range s.SelectedSubreddits {
		if n == name {
			return true
		}
	}
	return false
}

// ClusterCount returns the number of clusters, treating an absent analysis as zero.
func (s State) ClusterCount() int {
	if s.Analysis == nil {
		return 0
	}
	return len(s.Analysis.Clusters)
}
