package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ideaspark/internal/session"

	json "github.com/goccy/go-json"
)

// DefaultBaseURL is the fixed local service endpoint.
const DefaultBaseURL = "http://localhost:8000"

const maxErrorBody = 4 << 10

// HTTPGateway implements Gateway over JSON HTTP against the local service.
type HTTPGateway struct {
	baseURL     string
	httpClient  *http.Client
	onMalformed func(MalformedResponseError)
}

var _ Gateway = (*HTTPGateway)(nil)

// Option customizes an HTTPGateway.
type Option func(*HTTPGateway)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPGateway) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithMalformedHook receives every expected-shape violation that was
// replaced by an empty list.
func WithMalformedHook(fn func(MalformedResponseError)) Option {
	return func(g *HTTPGateway) {
		g.onMalformed = fn
	}
}

// NewHTTP builds a gateway for baseURL. A zero timeout leaves requests bound
// only by their context.
func NewHTTP(baseURL string, timeout time.Duration, opts ...Option) *HTTPGateway {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	g := &HTTPGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *HTTPGateway) BaseURL() string { return g.baseURL }

func (g *HTTPGateway) GenerateNiches(ctx context.Context, profile session.UserProfile) ([]string, error) {
	var out struct {
		Niches *[]string `json:"niches"`
	}
	if err := g.post(ctx, OpGenerateNiches, map[string]any{"profile": profile}, &out); err != nil {
		return nil, err
	}
	return listOrEmpty(g, OpGenerateNiches, "niches", out.Niches), nil
}

func (g *HTTPGateway) ValidateDemand(ctx context.Context, niche string) (session.DemandSeries, error) {
	var out struct {
		Labels       *[]string  `json:"labels"`
		SearchVolume *[]float64 `json:"searchVolume"`
		Trend        string     `json:"trend"`
		Note         string     `json:"note"`
	}
	if err := g.post(ctx, OpValidateDemand, map[string]any{"niche": niche}, &out); err != nil {
		return session.DemandSeries{}, err
	}
	series := session.DemandSeries{
		Labels:       listOrEmpty(g, OpValidateDemand, "labels", out.Labels),
		SearchVolume: listOrEmpty(g, OpValidateDemand, "searchVolume", out.SearchVolume),
		Trend:        out.Trend,
		Note:         out.Note,
	}
	if !series.Valid() {
		return session.DemandSeries{}, &ServiceError{
			Op:      OpValidateDemand,
			Message: fmt.Sprintf("labels (%d) and searchVolume (%d) lengths differ", len(series.Labels), len(series.SearchVolume)),
		}
	}
	return series, nil
}

func (g *HTTPGateway) RelevantSubreddits(ctx context.Context, profile session.UserProfile) ([]session.SubredditInfo, error) {
	var out struct {
		Suggested *[]session.SubredditInfo `json:"suggested_subreddits"`
	}
	if err := g.post(ctx, OpRelevantSubreddits, map[string]any{"profile": profile}, &out); err != nil {
		return nil, err
	}
	return listOrEmpty(g, OpRelevantSubreddits, "suggested_subreddits", out.Suggested), nil
}

func (g *HTTPGateway) AllSubreddits(ctx context.Context) ([]session.SubredditInfo, error) {
	var out struct {
		Subreddits *[]session.SubredditInfo `json:"subreddits"`
	}
	if err := g.do(ctx, http.MethodGet, OpAllSubreddits, nil, &out); err != nil {
		return nil, err
	}
	return listOrEmpty(g, OpAllSubreddits, "subreddits", out.Subreddits), nil
}

func (g *HTTPGateway) SearchReddit(ctx context.Context, niche string) ([]session.RedditPost, error) {
	var out struct {
		Posts *[]session.RedditPost `json:"redditPosts"`
	}
	if err := g.post(ctx, OpSearchReddit, map[string]any{"niche": niche}, &out); err != nil {
		return nil, err
	}
	return dedupPosts(listOrEmpty(g, OpSearchReddit, "redditPosts", out.Posts)), nil
}

func (g *HTTPGateway) SearchRedditTargeted(ctx context.Context, query string, subreddits []string) ([]session.RedditPost, error) {
	var out struct {
		Posts *[]session.RedditPost `json:"redditPosts"`
	}
	body := map[string]any{"query": query, "selected_subreddits": subreddits}
	if err := g.post(ctx, OpSearchRedditTargeted, body, &out); err != nil {
		return nil, err
	}
	return dedupPosts(listOrEmpty(g, OpSearchRedditTargeted, "redditPosts", out.Posts)), nil
}

func (g *HTTPGateway) ProcessPainPoints(ctx context.Context, contents []string) (session.PainPointAnalysis, error) {
	var out struct {
		Analysis *struct {
			Clusters *[]session.PainPointCluster `json:"clusters"`
		} `json:"analysis"`
	}
	if err := g.post(ctx, OpProcessPainPoints, map[string]any{"painPoints": contents}, &out); err != nil {
		return session.PainPointAnalysis{}, err
	}
	if out.Analysis == nil {
		g.report(OpProcessPainPoints, "analysis")
		return session.PainPointAnalysis{Clusters: []session.PainPointCluster{}}, nil
	}
	clusters := listOrEmpty(g, OpProcessPainPoints, "analysis.clusters", out.Analysis.Clusters)
	for i := range clusters {
		c := &clusters[i]
		prefix := fmt.Sprintf("analysis.clusters[%d].", i)
		c.Themes = nilToEmpty(g, OpProcessPainPoints, prefix+"themes", c.Themes)
		c.Quotes = nilToEmpty(g, OpProcessPainPoints, prefix+"quotes", c.Quotes)
		c.PainPoints = nilToEmpty(g, OpProcessPainPoints, prefix+"painPoints", c.PainPoints)
		for j := range c.PainPoints {
			c.PainPoints[j].CurrentSolutions = nilToEmpty(g, OpProcessPainPoints,
				fmt.Sprintf("%spainPoints[%d].currentSolutions", prefix, j), c.PainPoints[j].CurrentSolutions)
		}
	}
	return session.PainPointAnalysis{Clusters: clusters}, nil
}

func (g *HTTPGateway) GenerateIdeas(ctx context.Context, points []session.PainPoint, profile session.UserProfile) ([]session.BusinessIdea, error) {
	var out struct {
		Ideas *[]session.BusinessIdea `json:"ideas"`
	}
	body := map[string]any{"painPoints": points, "profile": profile}
	if err := g.post(ctx, OpGenerateIdeas, body, &out); err != nil {
		return nil, err
	}
	ideas := listOrEmpty(g, OpGenerateIdeas, "ideas", out.Ideas)
	for i := range ideas {
		prefix := fmt.Sprintf("ideas[%d].", i)
		ideas[i].KeyFeatures = nilToEmpty(g, OpGenerateIdeas, prefix+"keyFeatures", ideas[i].KeyFeatures)
		ideas[i].MarketTrends = nilToEmpty(g, OpGenerateIdeas, prefix+"marketTrends", ideas[i].MarketTrends)
		ideas[i].Competition.ExistingSolutions = nilToEmpty(g, OpGenerateIdeas,
			prefix+"competition.existingSolutions", ideas[i].Competition.ExistingSolutions)
	}
	return ideas, nil
}

func (g *HTTPGateway) ConfigureCredentials(ctx context.Context, creds session.Credentials) error {
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := g.post(ctx, OpConfigureCredentials, creds, &out); err != nil {
		return err
	}
	if out.Status != "" && !strings.EqualFold(out.Status, "success") {
		return &ServiceError{Op: OpConfigureCredentials, Message: out.Message}
	}
	return nil
}

// --- transport ---

func (g *HTTPGateway) post(ctx context.Context, op string, body any, out any) error {
	return g.do(ctx, http.MethodPost, op, body, out)
}

func (g *HTTPGateway) do(ctx context.Context, method, op string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return serviceErr(op, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/"+op, reader)
	if err != nil {
		return serviceErr(op, fmt.Errorf("create request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return serviceErr(op, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			return &ServiceError{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("read error body: %v", readErr), Err: readErr}
		}
		return &ServiceError{Op: op, Status: resp.StatusCode, Message: errorDetail(data)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return serviceErr(op, fmt.Errorf("read response: %w", err))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return serviceErr(op, fmt.Errorf("parse response: %w", err))
	}
	return nil
}

// errorDetail 提取 {"detail": "..."} 错误体，回退到原始文本
// errorDetail extracts a {"detail": ...} error body, falling back to the raw text
func errorDetail(data []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(body.Detail); err == nil {
			return string(b)
		}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "empty error body"
	}
	return text
}

func (g *HTTPGateway) report(op, field string) {
	if g.onMalformed != nil {
		g.onMalformed(MalformedResponseError{Op: op, Field: field})
	}
}

func listOrEmpty[T any](g *HTTPGateway, op, field string, v *[]T) []T {
	if v == nil || *v == nil {
		g.report(op, field)
		return []T{}
	}
	return *v
}

func nilToEmpty[T any](g *HTTPGateway, op, field string, v []T) []T {
	if v == nil {
		g.report(op, field)
		return []T{}
	}
	return v
}

func dedupPosts(posts []session.RedditPost) []session.RedditPost {
	seen := make(map[string]struct{}, len(posts))
	out := make([]session.RedditPost, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	}
	return out
}
