package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ideaspark/internal/llm"
	"ideaspark/internal/session"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	mu         sync.Mutex
	configured bool
	key        string
	replies    []string
	prompts    []string
	err        error
}

func (m *fakeModel) Configured() bool { return m.configured }

func (m *fakeModel) SetAPIKey(key string) {
	m.key = key
	m.configured = key != ""
}

func (m *fakeModel) CompleteJSON(_ context.Context, _, user string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, user)
	if m.err != nil {
		return m.err
	}
	reply := "{}"
	if len(m.replies) > 0 {
		reply, m.replies = m.replies[0], m.replies[1:]
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Join(llm.ErrMalformedJSON, err)
	}
	return nil
}

type fakeReddit struct {
	mu          sync.Mutex
	configured  bool
	creds       RedditCredentials
	results     map[string][]Submission
	failures    map[string]error
	comments    map[string][]Comment
	subscribers map[string]int
	queries     []string
}

func (r *fakeReddit) Configured() bool { return r.configured }

func (r *fakeReddit) SetCredentials(c RedditCredentials) {
	r.creds = c
	r.configured = true
}

func (r *fakeReddit) Search(_ context.Context, subreddit, query string, _ int) ([]Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, subreddit+":"+query)
	if err := r.failures[subreddit]; err != nil {
		return nil, err
	}
	return r.results[subreddit], nil
}

func (r *fakeReddit) Comments(_ context.Context, permalink string, _ int) ([]Comment, error) {
	return r.comments[permalink], nil
}

func (r *fakeReddit) Subscribers(_ context.Context, subreddit string) (int, error) {
	n, ok := r.subscribers[subreddit]
	if !ok {
		return 0, errors.New("not found")
	}
	return n, nil
}

func newTestServer(t *testing.T, model *fakeModel, reddit *fakeReddit) (*Server, *Catalog) {
	t.Helper()
	catalog := LoadCatalog(filepath.Join(t.TempDir(), "meta.json"), zerolog.Nop())
	srv := New(catalog, reddit, model, WithTokenizer(llm.NewHeuristicTokenizer(), 0))
	return srv, catalog
}

func do(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func ready() (*fakeModel, *fakeReddit) {
	return &fakeModel{configured: true}, &fakeReddit{configured: true}
}

func TestRequiresConfiguration(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{}, &fakeReddit{})
	rec, body := do(t, srv, http.MethodPost, "/generate-niches", map[string]any{"profile": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "OpenAI API not configured")

	// catalog endpoints work without credentials
	rec, body = do(t, srv, http.MethodGet, "/get-all-subreddits", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["subreddits"], 10)
}

func TestConfigureAPI(t *testing.T) {
	model, reddit := &fakeModel{}, &fakeReddit{}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/configure-api", map[string]string{"openai_api_key": "sk"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["detail"], "Failed to configure APIs: missing reddit_client_id")

	rec, body = do(t, srv, http.MethodPost, "/configure-api", map[string]string{
		"openai_api_key":       "sk",
		"reddit_client_id":     "id",
		"reddit_client_secret": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "sk", model.key)
	assert.Equal(t, "id", reddit.creds.ClientID)
	assert.True(t, reddit.Configured())
}

func TestGenerateNiches(t *testing.T) {
	model, reddit := ready()
	model.replies = []string{"```json\n[{\"name\": \"Freelancer invoicing\", \"description\": \"x\"}, \"Tax prep for creators\"]\n```"}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/generate-niches", map[string]any{
		"profile": session.UserProfile{Interest: "Other", InterestOther: "Finance", Skill: "Coding"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Freelancer invoicing", "Tax prep for creators"}, body["niches"])
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "- Interest: Finance")
	assert.Contains(t, model.prompts[0], "Use seed ")
}

func TestGenerateNichesUnparseable(t *testing.T) {
	model, reddit := ready()
	model.replies = []string{"I cannot help with that"}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/generate-niches", map[string]any{"profile": session.UserProfile{}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to parse OpenAI response", body["detail"])
}

func TestValidateDemandFallback(t *testing.T) {
	model, reddit := ready()
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/validate-demand", map[string]string{"niche": "pet tech"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["labels"], 12)
	assert.Len(t, body["searchVolume"], 12)
	assert.Equal(t, TrendGrowing, body["trend"])
	assert.Contains(t, body["note"], "pet tech")
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, TrendGrowing, TrendOf([]float64{1, 5}))
	assert.Equal(t, TrendDeclining, TrendOf([]float64{5, 1}))
	assert.Equal(t, TrendStable, TrendOf([]float64{3, 9, 3}))
	assert.Equal(t, TrendStable, TrendOf([]float64{3}))
}

func TestRelevantSubreddits(t *testing.T) {
	model, reddit := ready()
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/get-relevant-subreddits", map[string]any{
		"profile": session.UserProfile{Interest: "marketing", Skill: "coding"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	suggested, ok := body["suggested_subreddits"].([]any)
	require.True(t, ok)
	require.Len(t, suggested, 10)

	prev := suggested[0].(map[string]any)["relevance_score"].(float64)
	for _, item := range suggested[1:] {
		score := item.(map[string]any)["relevance_score"].(float64)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
	assert.Contains(t, body, "categories")
}

func TestCatalogRelevanceScores(t *testing.T) {
	c := LoadCatalog("", zerolog.Nop())
	got := c.Relevant(session.UserProfile{Interest: "startup", Skill: "coding", Problem: "funding"})
	require.NotEmpty(t, got)
	// startups: activity 9*5 + interest 10 + problem 6 = 61
	assert.Equal(t, "startups", got[0].Name)
	assert.Equal(t, 61.0, *got[0].RelevanceScore)

	all := c.All()
	assert.Equal(t, "programming", all[0].Name)
	assert.Equal(t, "freelance", all[len(all)-1].Name)
}

func TestCatalogPersistsAndRefreshes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	model, reddit := ready()
	reddit.subscribers = map[string]int{"webdev": 2500000}
	catalog := LoadCatalog(path, zerolog.Nop())
	srv := New(catalog, reddit, model)

	rec, _ := do(t, srv, http.MethodPost, "/update-subreddit-metadata", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reloaded := LoadCatalog(path, zerolog.Nop())
	for _, info := range reloaded.All() {
		switch info.Name {
		case "webdev":
			assert.Equal(t, 2500000, info.Subscribers)
		case "education":
			assert.Equal(t, 500000, info.Subscribers)
		}
	}
}

func TestSearchRedditFilters(t *testing.T) {
	model, reddit := ready()
	long := strings.Repeat("details ", 20)
	reddit.results = map[string][]Submission{"all": {
		{Title: "We are hiring a designer", Permalink: "/r/jobs/1/", Score: 500},
		{Title: "I'm struggling with invoices", Permalink: "/r/freelance/2/", Subreddit: "freelance", Score: 10, NumComments: 5},
		{Title: "Weekly thread", SelfText: long, Permalink: "/r/x/3/", Subreddit: "x", Score: 50, NumComments: 1},
		{Title: "Short note", Permalink: "/r/x/4/"},
		{Title: "I'm struggling with invoices", Permalink: "/r/freelance/2/", Score: 10},
	}}
	reddit.comments = map[string][]Comment{
		"/r/freelance/2/": {{Body: "ok", Score: 99}, {Body: "Try a reminder service", Score: 3, Author: "bob"}},
	}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/search-reddit", map[string]string{"niche": "invoicing"})
	require.Equal(t, http.StatusOK, rec.Code)
	posts := body["redditPosts"].([]any)
	require.Len(t, posts, 2)

	top := posts[0].(map[string]any)
	assert.Equal(t, "https://www.reddit.com/r/x/3/", top["url"])
	second := posts[1].(map[string]any)
	assert.Contains(t, second["content"], "--- COMMENTS ---")
	assert.Contains(t, second["content"], "Comment by bob (score: 3)")
	assert.NotContains(t, second["content"], "score: 99")
	assert.Equal(t, []string{"all:invoicing"}, reddit.queries)
}

func TestSearchRedditFailureIsEmpty(t *testing.T) {
	model, reddit := ready()
	reddit.failures = map[string]error{"all": errors.New("rate limited")}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/search-reddit", map[string]string{"niche": "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["redditPosts"])
}

func TestSearchTargeted(t *testing.T) {
	model, reddit := ready()
	reddit.results = map[string][]Submission{
		"freelance": {
			{Title: "Need advice on late payments", SelfText: strings.Repeat("a", 700), Permalink: "/r/freelance/1/", Score: 3},
			{Title: "My new logo", Permalink: "/r/freelance/2/"},
		},
		"smallbusiness": {
			{Title: "Question about taxes", Permalink: "/r/smallbusiness/3/"},
			{Title: "Need advice on late payments", Permalink: "/r/freelance/1/"},
		},
	}
	reddit.failures = map[string]error{"startups": errors.New("forbidden")}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/search-reddit-targeted", map[string]any{
		"query":               "payments",
		"selected_subreddits": []string{"freelance", "startups", "smallbusiness"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	posts := body["redditPosts"].([]any)
	require.Len(t, posts, 2)
	first := posts[0].(map[string]any)
	assert.Equal(t, "freelance", first["subreddit"])
	assert.Len(t, first["content"], 500)
	assert.Equal(t, "Question about taxes", posts[1].(map[string]any)["title"])

	rec, body = do(t, srv, http.MethodPost, "/search-reddit-targeted", map[string]any{"query": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No subreddits selected", body["detail"])
}

const clusterReply = `{"clusters": [
  {"name": "Payments", "themes": ["cash"], "quotes": ["ugh"], "emotionIntensity": 8, "solutionGap": 7, "frequency": 3,
   "painPoints": [{"point": "late payments", "emotionIntensity": 9, "solutionGap": 8, "currentSolutions": ["email"]}]},
  {"name": "Taxes", "themes": [], "quotes": [], "emotionIntensity": 6, "solutionGap": 9, "frequency": 5, "painPoints": []}
]}`

func TestProcessPainPoints(t *testing.T) {
	model, reddit := ready()
	model.replies = []string{"Here is the analysis:\n" + clusterReply}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/process-pain-points", map[string]any{
		"painPoints": []string{"Late invoices\nClients pay 90 days late", "  ", "Tax forms\nconfusing"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := body["analysis"].(map[string]any)
	assert.Len(t, analysis["clusters"], 2)
	summary := analysis["summary"].(map[string]any)
	assert.Equal(t, 2.0, summary["totalClusters"])
	assert.Equal(t, "Payments", summary["mostIntenseCluster"])
	assert.Equal(t, "Taxes", summary["biggestSolutionGap"])
	assert.Equal(t, "Taxes", summary["mostFrequentCluster"])
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Late invoices\nClients pay 90 days late\n\nTax forms\nconfusing")
}

func TestProcessPainPointsValidation(t *testing.T) {
	model, reddit := ready()
	srv, _ := newTestServer(t, model, reddit)
	for _, payload := range []any{
		map[string]any{"painPoints": []string{}},
		map[string]any{},
		map[string]any{"painPoints": 42},
	} {
		rec, _ := do(t, srv, http.MethodPost, "/process-pain-points", payload)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}

	rec, body := do(t, srv, http.MethodPost, "/process-pain-points", map[string]any{"painPoints": []string{" ", ""}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["analysis"].(map[string]any)["clusters"])
}

func TestProcessPainPointsSplitsLongContent(t *testing.T) {
	model, reddit := ready()
	model.replies = []string{clusterReply, "no json at all", clusterReply}
	catalog := LoadCatalog("", zerolog.Nop())
	srv := New(catalog, reddit, model, WithTokenizer(llm.NewHeuristicTokenizer(), 10))

	content := strings.Repeat("x", 100) // 40 runes per part at 10 tokens
	rec, body := do(t, srv, http.MethodPost, "/process-pain-points", map[string]any{"painPoints": []string{content}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, model.prompts, 3)
	// the unparseable middle part contributes nothing
	assert.Len(t, body["analysis"].(map[string]any)["clusters"], 4)
}

func TestGenerateIdeas(t *testing.T) {
	model, reddit := ready()
	model.replies = []string{`[{"name": "PayNudge", "description": "Automated reminders", "keyFeatures": ["sms"], "resonanceScore": 88}]`}
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/generate-ideas", map[string]any{
		"painPoints": []session.PainPoint{{Point: "late payments", EmotionIntensity: 9, SolutionGap: 8}},
		"profile":    session.UserProfile{Skill: "Coding"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	ideas := body["ideas"].([]any)
	require.Len(t, ideas, 1)
	assert.Equal(t, "PayNudge", ideas[0].(map[string]any)["name"])
	assert.Contains(t, model.prompts[0], `"point": "late payments"`)
}

func TestPainPointsFromStrings(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`"a"`), json.RawMessage(`"b"`), json.RawMessage(`"c"`), json.RawMessage(`"d"`),
	}
	points, err := painPointsFromRaw(raw)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, session.PainPoint{Point: "a", EmotionIntensity: 7, SolutionGap: 7}, points[0])
}

func TestModelErrorIsServerError(t *testing.T) {
	model, reddit := ready()
	model.err = errors.New("upstream exploded")
	srv, _ := newTestServer(t, model, reddit)

	rec, body := do(t, srv, http.MethodPost, "/generate-ideas", map[string]any{"painPoints": []string{"x"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["detail"], "upstream exploded")
}
