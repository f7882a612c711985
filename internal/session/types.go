package session

import "strings"

// otherOption 表单下拉框里的 "Other" 选项
// otherOption is the select value that defers to the free-text field
const otherOption = "Other"

// UserProfile 用户画像（阶段 0 收集）
// UserProfile is the personal profile collected at the profile stage
type UserProfile struct {
	Interest      string `json:"interest"`
	InterestOther string `json:"interestOther"`
	Skill         string `json:"skill"`
	SkillOther    string `json:"skillOther"`
	Problem       string `json:"problem"`
	ProblemOther  string `json:"problemOther"`
	Details       string `json:"details"`
}

// HasInterest 是否填写了兴趣 / Reports whether an interest was given
func (p UserProfile) HasInterest() bool {
	return strings.TrimSpace(p.Interest) != "" || strings.TrimSpace(p.InterestOther) != ""
}

// HasSkill 是否填写了技能 / Reports whether a skill was given
func (p UserProfile) HasSkill() bool {
	return strings.TrimSpace(p.Skill) != "" || strings.TrimSpace(p.SkillOther) != ""
}

func (p UserProfile) ResolvedInterest() string { return resolve(p.Interest, p.InterestOther) }
func (p UserProfile) ResolvedSkill() string    { return resolve(p.Skill, p.SkillOther) }
func (p UserProfile) ResolvedProblem() string  { return resolve(p.Problem, p.ProblemOther) }

func resolve(selected, other string) string {
	selected = strings.TrimSpace(selected)
	if selected == "" || strings.EqualFold(selected, otherOption) {
		return strings.TrimSpace(other)
	}
	return selected
}

// DemandSeries 需求趋势序列
// DemandSeries is the search-volume series returned by demand validation
type DemandSeries struct {
	Labels       []string  `json:"labels"`
	SearchVolume []float64 `json:"searchVolume"`
	Trend        string    `json:"trend"`
	Note         string    `json:"note,omitempty"`
}

// Valid labels 与 volumes 等长（两者都存在时）
// Valid reports whether labels and volumes line up when both are present
func (d DemandSeries) Valid() bool {
	if len(d.Labels) == 0 || len(d.SearchVolume) == 0 {
		return true
	}
	return len(d.Labels) == len(d.SearchVolume)
}

type SubredditInfo struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Subscribers    int      `json:"subscribers"`
	Category       string   `json:"category"`
	ActivityScore  float64  `json:"activity_score"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

type RedditPost struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Subreddit   string `json:"subreddit"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
}

// PainPoint 单个痛点，强度与缺口均为 0-10
// PainPoint is a single extracted pain point; intensity and gap are 0-10
type PainPoint struct {
	Point            string   `json:"point"`
	Quote            string   `json:"quote,omitempty"`
	CurrentSolutions []string `json:"currentSolutions"`
	EmotionIntensity float64  `json:"emotionIntensity"`
	SolutionGap      float64  `json:"solutionGap"`
}

// Composite 综合分 = 情绪强度 + 方案缺口 (0-20)
// Composite is emotionIntensity + solutionGap (0-20)
func (p PainPoint) Composite() float64 {
	return p.EmotionIntensity + p.SolutionGap
}

type PainPointCluster struct {
	Name             string      `json:"name"`
	EmotionIntensity float64     `json:"emotionIntensity"`
	SolutionGap      float64     `json:"solutionGap"`
	Frequency        float64     `json:"frequency,omitempty"`
	Themes           []string    `json:"themes"`
	Quotes           []string    `json:"quotes"`
	PainPoints       []PainPoint `json:"painPoints"`
}

type PainPointAnalysis struct {
	Clusters []PainPointCluster `json:"clusters"`
}

// Competition 竞争格局 / Competitive landscape of an idea
type Competition struct {
	ExistingSolutions []string `json:"existingSolutions"`
	OurAdvantage      string   `json:"ourAdvantage"`
}

// BusinessIdea 生成的商业点子，Name 作为评分键
// BusinessIdea is a generated idea; Name is the rating key
type BusinessIdea struct {
	Name             string      `json:"name"`
	TargetAudience   string      `json:"targetAudience"`
	Description      string      `json:"description"`
	ValueProposition string      `json:"valueProposition"`
	UniqueMechanism  string      `json:"uniqueMechanism"`
	KeyFeatures      []string    `json:"keyFeatures"`
	MarketTrends     []string    `json:"marketTrends"`
	Monetization     string      `json:"monetization"`
	Competition      Competition `json:"competition"`
	ResonanceScore   float64     `json:"resonanceScore"`
}

// Credentials 外部服务凭据（不落盘）
// Credentials are the provider secrets forwarded to the service; never persisted
type Credentials struct {
	OpenAIAPIKey       string `json:"openai_api_key"`
	RedditClientID     string `json:"reddit_client_id"`
	RedditClientSecret string `json:"reddit_client_secret"`
	RedditUserAgent    string `json:"reddit_user_agent"`
}
