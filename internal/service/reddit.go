package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// DefaultRedditAuthURL is the OAuth token endpoint for the client-credentials grant.
	DefaultRedditAuthURL = "https://www.reddit.com/api/v1/access_token"
	// DefaultRedditAPIURL is the authenticated API host.
	DefaultRedditAPIURL = "https://oauth.reddit.com"
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "IdeaSpark/1.0"

	redditWebURL = "https://www.reddit.com"
)

// ErrRedditNotConfigured is returned before client credentials are set.
var ErrRedditNotConfigured = errors.New("reddit client not configured")

// Submission 搜索结果中的单个帖子 / One post from a search listing
type Submission struct {
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// URL returns the canonical web address of the post.
func (s Submission) URL() string {
	return redditWebURL + s.Permalink
}

type Comment struct {
	Body   string `json:"body"`
	Score  int    `json:"score"`
	Author string `json:"author"`
}

// RedditClient 本服务使用的 Reddit 能力
// RedditClient is the subset of the Reddit API the service needs
type RedditClient interface {
	Configured() bool
	Search(ctx context.Context, subreddit, query string, limit int) ([]Submission, error)
	Comments(ctx context.Context, permalink string, limit int) ([]Comment, error)
	Subscribers(ctx context.Context, subreddit string) (int, error)
}

// RedditCredentials are the script-app credentials for the client-credentials grant.
type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// RedditHTTP 通过 OAuth client-credentials 访问 Reddit JSON API
// RedditHTTP talks to the Reddit JSON API using the OAuth client-credentials grant
type RedditHTTP struct {
	authURL    string
	apiURL     string
	httpClient *http.Client

	mu      sync.Mutex
	creds   RedditCredentials
	token   string
	expires time.Time
	now     func() time.Time
}

func NewRedditHTTP(timeout time.Duration) *RedditHTTP {
	return &RedditHTTP{
		authURL:    DefaultRedditAuthURL,
		apiURL:     DefaultRedditAPIURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// WithEndpoints points the client at alternative auth and API hosts.
func (r *RedditHTTP) WithEndpoints(authURL, apiURL string) *RedditHTTP {
	r.authURL = authURL
	r.apiURL = strings.TrimRight(apiURL, "/")
	return r
}

// SetCredentials replaces the credentials and drops any cached token.
func (r *RedditHTTP) SetCredentials(creds RedditCredentials) {
	creds.ClientID = strings.TrimSpace(creds.ClientID)
	creds.ClientSecret = strings.TrimSpace(creds.ClientSecret)
	creds.UserAgent = strings.TrimSpace(creds.UserAgent)
	if creds.UserAgent == "" {
		creds.UserAgent = DefaultUserAgent
	}
	r.mu.Lock()
	r.creds = creds
	r.token = ""
	r.expires = time.Time{}
	r.mu.Unlock()
}

func (r *RedditHTTP) Configured() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creds.ClientID != "" && r.creds.ClientSecret != ""
}

func (r *RedditHTTP) Search(ctx context.Context, subreddit, query string, limit int) ([]Submission, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "relevance")
	q.Set("t", "year")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	if subreddit != "all" {
		q.Set("restrict_sr", "1")
	}
	var listing struct {
		Data struct {
			Children []struct {
				Data Submission `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := r.get(ctx, "/r/"+url.PathEscape(subreddit)+"/search", q, &listing); err != nil {
		return nil, err
	}
	out := make([]Submission, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		out = append(out, child.Data)
	}
	return out, nil
}

func (r *RedditHTTP) Comments(ctx context.Context, permalink string, limit int) ([]Comment, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "top")
	q.Set("raw_json", "1")
	var listings []struct {
		Data struct {
			Children []struct {
				Kind string  `json:"kind"`
				Data Comment `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	path := strings.TrimSuffix(permalink, "/")
	if err := r.get(ctx, path, q, &listings); err != nil {
		return nil, err
	}
	// 第一个列表是帖子本身，第二个是评论
	// The first listing is the post itself, the second holds the comments
	if len(listings) < 2 {
		return []Comment{}, nil
	}
	out := make([]Comment, 0, len(listings[1].Data.Children))
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		out = append(out, child.Data)
	}
	return out, nil
}

func (r *RedditHTTP) Subscribers(ctx context.Context, subreddit string) (int, error) {
	var about struct {
		Data struct {
			Subscribers int `json:"subscribers"`
		} `json:"data"`
	}
	if err := r.get(ctx, "/r/"+url.PathEscape(subreddit)+"/about", nil, &about); err != nil {
		return 0, err
	}
	return about.Data.Subscribers, nil
}

func (r *RedditHTTP) get(ctx context.Context, path string, query url.Values, out any) error {
	token, agent, err := r.accessToken(ctx)
	if err != nil {
		return err
	}
	endpoint := r.apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create reddit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", agent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		r.mu.Lock()
		r.token = ""
		r.mu.Unlock()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reddit %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode reddit %s: %w", path, err)
	}
	return nil
}

// accessToken 返回缓存的 token，过期前 1 分钟刷新
// accessToken returns the cached token, refreshing it a minute before expiry
func (r *RedditHTTP) accessToken(ctx context.Context) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.creds.ClientID == "" || r.creds.ClientSecret == "" {
		return "", "", ErrRedditNotConfigured
	}
	if r.token != "" && r.now().Before(r.expires) {
		return r.token, r.creds.UserAgent, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(r.creds.ClientID, r.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.creds.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("reddit token request: %w", err)
	}
	defer resp.Body.Close()
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("decode reddit token: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.AccessToken == "" {
		reason := body.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return "", "", fmt.Errorf("reddit token: status %d: %s", resp.StatusCode, reason)
	}
	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	r.token = body.AccessToken
	r.expires = r.now().Add(ttl - time.Minute)
	return r.token, r.creds.UserAgent, nil
}
