package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"ideaspark/internal/llm"
	"ideaspark/internal/session"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const systemPrompt = "You are a business strategist specializing in market research and idea generation."

// Completer 生成 JSON 的模型接口 / Model that answers prompts with JSON
type Completer interface {
	Configured() bool
	CompleteJSON(ctx context.Context, system, user string, out any) error
}

var _ Completer = (*llm.Client)(nil)

// withSeed 附加随机种子以获得不同的回答
// withSeed appends a random seed so repeated prompts produce varied answers
func withSeed(prompt string) string {
	return fmt.Sprintf("%s\nUse seed %d for varied responses.", prompt, rand.IntN(10000)+1)
}

func generateNiches(ctx context.Context, model Completer, profile session.UserProfile) ([]string, error) {
	prompt := fmt.Sprintf(`# Niche Generator
Based on the user profile:
- Interest: %s
- Skill: %s
- Problem: %s
- Details: %s
Generate 5 relevant market niches with brief descriptions.
Return a list in JSON format: [{"name": "Niche", "description": "Description"}, ...]`,
		profile.ResolvedInterest(), profile.ResolvedSkill(), profile.ResolvedProblem(), profile.Details)

	var raw []json.RawMessage
	if err := model.CompleteJSON(ctx, systemPrompt, withSeed(prompt), &raw); err != nil {
		return nil, err
	}
	niches := make([]string, 0, len(raw))
	for _, item := range raw {
		// 模型有时直接返回字符串数组
		// The model sometimes answers with plain strings
		var named struct {
			Name string `json:"name"`
		}
		var plain string
		switch {
		case json.Unmarshal(item, &named) == nil && strings.TrimSpace(named.Name) != "":
			niches = append(niches, strings.TrimSpace(named.Name))
		case json.Unmarshal(item, &plain) == nil && strings.TrimSpace(plain) != "":
			niches = append(niches, strings.TrimSpace(plain))
		}
	}
	return niches, nil
}

type clusterSummary struct {
	TotalClusters       int    `json:"totalClusters"`
	MostIntenseCluster  string `json:"mostIntenseCluster,omitempty"`
	BiggestSolutionGap  string `json:"biggestSolutionGap,omitempty"`
	MostFrequentCluster string `json:"mostFrequentCluster,omitempty"`
}

type analysisResponse struct {
	Clusters []session.PainPointCluster `json:"clusters"`
	Summary  clusterSummary             `json:"summary"`
}

const clusterPrompt = `You are a pain point analyzer. Analyze the following Reddit content and extract pain points:

%s

Extract pain points from this content and group them into clusters. For each pain point, identify:
1. The core issue/problem
2. Representative quotes from the text
3. Emotion intensity (1-10 scale)
4. Current solutions being used
5. Solution gap (1-10 scale - how well current solutions work)

Return ONLY a valid JSON object with this exact structure (no other text):
{
    "clusters": [
        {
            "name": "Cluster Name",
            "themes": ["Theme 1", "Theme 2"],
            "quotes": ["Quote 1", "Quote 2"],
            "emotionIntensity": 8.5,
            "solutionGap": 7.5,
            "frequency": 5,
            "painPoints": [
                {
                    "point": "Specific Pain Point",
                    "quote": "Representative Quote",
                    "emotionIntensity": 9,
                    "currentSolutions": ["Solution 1", "Solution 2"],
                    "solutionGap": 8
                }
            ]
        }
    ]
}

Focus on real pain points mentioned in the text. If no clear pain points are found, return an empty clusters array.`

// analyzePainPoints clusters the post contents. Content over the token
// budget is split into parts that are analyzed one by one; a part whose
// reply cannot be parsed contributes no clusters.
func analyzePainPoints(ctx context.Context, model Completer, tok *llm.Tokenizer, maxTokens int, contents []string, logger zerolog.Logger) (analysisResponse, error) {
	parts := tok.Split(llm.JoinContents(contents), maxTokens)
	clusters := make([]session.PainPointCluster, 0)
	for i, part := range parts {
		var out struct {
			Clusters []session.PainPointCluster `json:"clusters"`
		}
		err := model.CompleteJSON(ctx, systemPrompt, withSeed(fmt.Sprintf(clusterPrompt, part)), &out)
		if err != nil {
			if !isParseFailure(err) {
				return analysisResponse{}, err
			}
			logger.Warn().Err(err).Int("part", i+1).Int("parts", len(parts)).Msg("unparseable cluster reply")
			continue
		}
		clusters = append(clusters, out.Clusters...)
	}
	return analysisResponse{Clusters: clusters, Summary: summarize(clusters)}, nil
}

func isParseFailure(err error) bool {
	return errors.Is(err, llm.ErrNoJSON) || errors.Is(err, llm.ErrMalformedJSON)
}

func summarize(clusters []session.PainPointCluster) clusterSummary {
	s := clusterSummary{TotalClusters: len(clusters)}
	if len(clusters) == 0 {
		return s
	}
	intense, gap, frequent := clusters[0], clusters[0], clusters[0]
	for _, c := range clusters[1:] {
		if c.EmotionIntensity > intense.EmotionIntensity {
			intense = c
		}
		if c.SolutionGap > gap.SolutionGap {
			gap = c
		}
		if c.Frequency > frequent.Frequency {
			frequent = c
		}
	}
	s.MostIntenseCluster = intense.Name
	s.BiggestSolutionGap = gap.Name
	s.MostFrequentCluster = frequent.Name
	return s
}

const ideaPrompt = `# Business Idea Generator (Strategic Framework)

You are a market strategist specializing in startup ideation. Your task is to generate innovative business ideas that solve real problems in underserved markets.

Context:
- Avoid generic productivity tools
- Focus on underserved problems or rising trends
- Consider emerging technologies and market shifts

User Profile:
- Interest: %s
- Skill: %s
- Problem Focus: %s
- Additional Details: %s

Pain Point Analysis:
%s

For each pain point cluster, generate a business idea that:
1. Has a unique hook or twist
2. Solves the pain in a new or better way than existing solutions
3. Is clearly monetizable
4. Targets an underserved or emerging market
5. Leverages the user's skills effectively

Return a JSON array of ideas, each containing:
{
    "name": "Product Name",
    "description": "Clear, concise description of the solution",
    "targetAudience": "Specific target market segment",
    "valueProposition": "Unique value that solves the pain point",
    "uniqueMechanism": "How it differs from existing solutions",
    "monetization": "Clear revenue model",
    "resonanceScore": 0-100 (based on skill fit, market need, and uniqueness),
    "keyFeatures": ["Feature 1", "Feature 2", "Feature 3"],
    "marketTrends": ["Relevant trend 1", "Relevant trend 2"],
    "competition": {
        "existingSolutions": ["Solution 1", "Solution 2"],
        "ourAdvantage": "How we're different"
    }
}

Focus on generating 3 high-quality ideas that are specific, actionable and based on real market needs.`

func generateIdeas(ctx context.Context, model Completer, points []session.PainPoint, profile session.UserProfile) ([]session.BusinessIdea, error) {
	analysis, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pain points: %w", err)
	}
	prompt := fmt.Sprintf(ideaPrompt,
		profile.ResolvedInterest(), profile.ResolvedSkill(), profile.ResolvedProblem(), profile.Details, analysis)

	ideas := make([]session.BusinessIdea, 0)
	if err := model.CompleteJSON(ctx, systemPrompt, withSeed(prompt), &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// painPointsFromRaw 接受对象数组或字符串数组；字符串只取前三条
// painPointsFromRaw accepts either pain point objects or plain strings; only the first three strings are used
func painPointsFromRaw(raw []json.RawMessage) ([]session.PainPoint, error) {
	points := make([]session.PainPoint, 0, len(raw))
	var texts []string
	for i, item := range raw {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			texts = append(texts, text)
			continue
		}
		var p session.PainPoint
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("painPoints[%d]: %w", i, err)
		}
		points = append(points, p)
	}
	if len(points) > 0 {
		return points, nil
	}
	if len(texts) > 3 {
		texts = texts[:3]
	}
	for _, t := range texts {
		points = append(points, session.PainPoint{Point: t, EmotionIntensity: 7, SolutionGap: 7})
	}
	return points, nil
}
