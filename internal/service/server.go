// Package service is the local IdeaSpark HTTP service: subreddit catalog,
// demand series, Reddit search and the model-backed niche, clustering and
// idea endpoints consumed by the gateway.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ideaspark/internal/llm"
	"ideaspark/internal/session"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const maxRequestBody = 4 << 20

// openAIKeySetter 可在运行时替换密钥的模型客户端
// openAIKeySetter is a model client whose key can be replaced at runtime
type openAIKeySetter interface {
	SetAPIKey(key string)
}

type redditCredentialSetter interface {
	SetCredentials(creds RedditCredentials)
}

// Server 本地服务 / The local service
type Server struct {
	catalog   *Catalog
	demand    DemandSource
	reddit    RedditClient
	model     Completer
	tokenizer *llm.Tokenizer
	maxTokens int
	logger    zerolog.Logger
	router    chi.Router
}

type Option func(*Server)

func WithDemandSource(d DemandSource) Option {
	return func(s *Server) {
		if d != nil {
			s.demand = d
		}
	}
}

func WithTokenizer(t *llm.Tokenizer, maxTokens int) Option {
	return func(s *Server) {
		if t != nil {
			s.tokenizer = t
		}
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New wires the handlers. reddit and model may start unconfigured; they are
// configured later through /configure-api when they support it.
func New(catalog *Catalog, reddit RedditClient, model Completer, opts ...Option) *Server {
	s := &Server{
		catalog:   catalog,
		demand:    FallbackDemand{},
		reddit:    reddit,
		model:     model,
		tokenizer: llm.DefaultTokenizer(),
		maxTokens: 6000,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Post("/configure-api", s.handleConfigure)
	r.Post("/generate-niches", s.handleGenerateNiches)
	r.Post("/validate-demand", s.handleValidateDemand)
	r.Post("/get-relevant-subreddits", s.handleRelevantSubreddits)
	r.Get("/get-all-subreddits", s.handleAllSubreddits)
	r.Post("/search-reddit", s.handleSearchReddit)
	r.Post("/search-reddit-targeted", s.handleSearchTargeted)
	r.Post("/process-pain-points", s.handleProcessPainPoints)
	r.Post("/generate-ideas", s.handleGenerateIdeas)
	r.Post("/update-subreddit-metadata", s.handleUpdateMetadata)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// --- handlers ---

type configureRequest struct {
	OpenAIAPIKey       string `json:"openai_api_key"`
	RedditClientID     string `json:"reddit_client_id"`
	RedditClientSecret string `json:"reddit_client_secret"`
	RedditUserAgent    string `json:"reddit_user_agent"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Configure(req.OpenAIAPIKey, RedditCredentials{
		ClientID:     req.RedditClientID,
		ClientSecret: req.RedditClientSecret,
		UserAgent:    req.RedditUserAgent,
	}); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to configure APIs: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "API configuration successful"})
}

// Configure installs credentials on the model and Reddit clients.
func (s *Server) Configure(openAIKey string, reddit RedditCredentials) error {
	var missing []string
	if strings.TrimSpace(openAIKey) == "" {
		missing = append(missing, "openai_api_key")
	}
	if strings.TrimSpace(reddit.ClientID) == "" {
		missing = append(missing, "reddit_client_id")
	}
	if strings.TrimSpace(reddit.ClientSecret) == "" {
		missing = append(missing, "reddit_client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	setter, ok := s.model.(openAIKeySetter)
	if !ok {
		return errors.New("model client does not accept an API key")
	}
	redditSetter, ok := s.reddit.(redditCredentialSetter)
	if !ok {
		return errors.New("reddit client does not accept credentials")
	}
	setter.SetAPIKey(openAIKey)
	redditSetter.SetCredentials(reddit)
	s.logger.Info().Msg("API credentials configured")
	return nil
}

type profileRequest struct {
	Profile session.UserProfile `json:"profile"`
}

func (s *Server) handleGenerateNiches(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !s.requireConfigured(w) || !s.decode(w, r, &req) {
		return
	}
	niches, err := generateNiches(r.Context(), s.model, req.Profile)
	if err != nil {
		s.modelFailure(w, "generate niches", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"niches": niches})
}

type nicheRequest struct {
	Niche string `json:"niche"`
}

func (s *Server) handleValidateDemand(w http.ResponseWriter, r *http.Request) {
	var req nicheRequest
	if !s.requireConfigured(w) || !s.decode(w, r, &req) {
		return
	}
	series, err := s.demand.Demand(r.Context(), req.Niche)
	if err != nil {
		// 趋势源失败时退回固定序列
		// A failing trend source falls back to the fixed series
		s.logger.Warn().Err(err).Str("niche", req.Niche).Msg("demand source failed")
		series, _ = FallbackDemand{}.Demand(r.Context(), req.Niche)
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleRelevantSubreddits(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggested_subreddits": s.catalog.Relevant(req.Profile),
		"categories":           s.catalog.Categories(),
	})
}

func (s *Server) handleAllSubreddits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"subreddits": s.catalog.All()})
}

func (s *Server) handleSearchReddit(w http.ResponseWriter, r *http.Request) {
	var req nicheRequest
	if !s.requireConfigured(w) || !s.decode(w, r, &req) {
		return
	}
	posts, err := broadSearch(r.Context(), s.reddit, req.Niche, s.logger)
	if err != nil {
		// 搜索失败返回空列表 / A failed search yields an empty list
		s.logger.Warn().Err(err).Str("query", req.Niche).Msg("reddit search failed")
		posts = []session.RedditPost{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"redditPosts": posts})
}

type targetedRequest struct {
	Query              string   `json:"query"`
	SelectedSubreddits []string `json:"selected_subreddits"`
}

func (s *Server) handleSearchTargeted(w http.ResponseWriter, r *http.Request) {
	var req targetedRequest
	if !s.requireConfigured(w) || !s.decode(w, r, &req) {
		return
	}
	if len(req.SelectedSubreddits) == 0 {
		writeDetail(w, http.StatusBadRequest, "No subreddits selected")
		return
	}
	posts, err := targetedSearch(r.Context(), s.reddit, req.Query, req.SelectedSubreddits, s.logger)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"redditPosts": posts})
}

type painPointsRequest struct {
	PainPoints json.RawMessage `json:"painPoints"`
}

func (s *Server) handleProcessPainPoints(w http.ResponseWriter, r *http.Request) {
	var req painPointsRequest
	if !s.requireConfigured(w) || !s.decode(w, r, &req) {
		return
	}
	contents, err := painPointTexts(req.PainPoints)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(contents) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"analysis": analysisResponse{Clusters: []session.PainPointCluster{}}})
		return
	}
	analysis, err := analyzePainPoints(r.Context(), s.model, s.tokenizer, s.maxTokens, contents, s.logger)
	if err != nil {
		s.modelFailure(w, "process pain points", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

// painPointTexts 接受字符串或字符串数组，去掉空白项；输入为空视为校验错误
// painPointTexts accepts a string or a list, dropping blank items; empty input is a validation error
func painPointTexts(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` || trimmed == "[]" {
		return nil, errors.New("painPoints cannot be empty")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return nonBlank([]string{single}), nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New("painPoints must be a list")
	}
	texts := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			texts = append(texts, v)
		case nil:
		default:
			texts = append(texts, fmt.Sprint(v))
		}
	}
	return nonBlank(texts), nil
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type ideasRequest struct {
	PainPoints []json.RawMessage   `json:"painPoints"`
	Profile    session.UserProfile `json:"profile"`
}

func (s *Server) handleGenerateIdeas(w http.ResponseWriter, r *http.Request) {
	var req ideasRequest
	if !s.requireConfigured(w) || !s.decode(w, r, &req) {
		return
	}
	points, err := painPointsFromRaw(req.PainPoints)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ideas, err := generateIdeas(r.Context(), s.model, points, req.Profile)
	if err != nil {
		s.modelFailure(w, "generate ideas", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": ideas})
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	if !s.reddit.Configured() {
		writeDetail(w, http.StatusBadRequest, "Reddit API not configured. Please configure the API first.")
		return
	}
	if err := s.RefreshCatalog(r.Context()); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Subreddit metadata updated successfully"})
}

// RefreshCatalog pulls current subscriber counts for every catalog entry.
// Subreddits that fail to load keep their previous count.
func (s *Server) RefreshCatalog(ctx context.Context) error {
	counts := make(map[string]int)
	for _, name := range s.catalog.Names() {
		n, err := s.reddit.Subscribers(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Str("subreddit", name).Msg("refresh subscribers")
			continue
		}
		counts[name] = n
	}
	if err := s.catalog.UpdateSubscribers(counts); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	s.logger.Info().Int("updated", len(counts)).Msg("subreddit catalog refreshed")
	return nil
}

// --- helpers ---

func (s *Server) requireConfigured(w http.ResponseWriter) bool {
	if !s.model.Configured() {
		writeDetail(w, http.StatusBadRequest, "OpenAI API not configured. Please configure the API first.")
		return false
	}
	if !s.reddit.Configured() {
		writeDetail(w, http.StatusBadRequest, "Reddit API not configured. Please configure the API first.")
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "read request body: "+err.Error())
		return false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, out); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) modelFailure(w http.ResponseWriter, what string, err error) {
	s.logger.Error().Err(err).Str("op", what).Msg("model call failed")
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeDetail(w, http.StatusGatewayTimeout, what+": "+err.Error())
	case errors.Is(err, llm.ErrNoJSON), errors.Is(err, llm.ErrMalformedJSON):
		writeDetail(w, http.StatusInternalServerError, "Failed to parse OpenAI response")
	default:
		writeDetail(w, http.StatusInternalServerError, "OpenAI API call failed: "+err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
