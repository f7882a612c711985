package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ideaspark/internal/session"

	json "github.com/goccy/go-json"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	calls := []recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &rec.body)
			}
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestHTTPGateway_GenerateNiches(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"niches": ["AI tools for freelancers", "Dev tooling"]}`)
	})
	g := NewHTTP(srv.URL, time.Second)

	niches, err := g.GenerateNiches(context.Background(), session.UserProfile{Interest: "Technology", Skill: "Coding"})
	if err != nil {
		t.Fatalf("GenerateNiches: %v", err)
	}
	if len(niches) != 2 || niches[0] != "AI tools for freelancers" {
		t.Fatalf("unexpected niches: %v", niches)
	}
	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/generate-niches" {
		t.Fatalf("unexpected request: %s %s", got.method, got.path)
	}
	profile, ok := got.body["profile"].(map[string]any)
	if !ok || profile["interest"] != "Technology" || profile["skill"] != "Coding" {
		t.Fatalf("unexpected request body: %v", got.body)
	}
}

func TestHTTPGateway_AllSubredditsUsesGet(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"subreddits": [{"name": "startups", "display_name": "Startups", "subscribers": 1200000, "category": "business", "activity_score": 9}]}`)
	})
	g := NewHTTP(srv.URL+"/", time.Second)

	subs, err := g.AllSubreddits(context.Background())
	if err != nil {
		t.Fatalf("AllSubreddits: %v", err)
	}
	if len(subs) != 1 || subs[0].DisplayName != "Startups" || subs[0].Subscribers != 1200000 {
		t.Fatalf("unexpected subreddits: %+v", subs)
	}
	if (*calls)[0].method != http.MethodGet || (*calls)[0].path != "/get-all-subreddits" {
		t.Fatalf("unexpected request: %+v", (*calls)[0])
	}
}

func TestHTTPGateway_TargetedSearchBody(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"redditPosts": [
			{"url": "https://r/a", "title": "a", "content": "x", "subreddit": "freelance", "score": 1, "num_comments": 2},
			{"url": "https://r/a", "title": "dup", "content": "y", "subreddit": "freelance", "score": 1, "num_comments": 2},
			{"url": "https://r/b", "title": "b", "content": "z", "subreddit": "startups", "score": 3, "num_comments": 0}
		]}`)
	})
	g := NewHTTP(srv.URL, time.Second)

	posts, err := g.SearchRedditTargeted(context.Background(), "invoicing", []string{"freelance", "startups"})
	if err != nil {
		t.Fatalf("SearchRedditTargeted: %v", err)
	}
	if len(posts) != 2 || posts[0].Title != "a" || posts[1].URL != "https://r/b" {
		t.Fatalf("expected duplicates removed, got %+v", posts)
	}
	body := (*calls)[0].body
	if body["query"] != "invoicing" {
		t.Fatalf("query not sent: %v", body)
	}
	subs, _ := body["selected_subreddits"].([]any)
	if len(subs) != 2 {
		t.Fatalf("selected_subreddits not sent: %v", body)
	}
}

func TestHTTPGateway_ErrorDetail(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail": "OpenAI API key not configured"}`)
	})
	g := NewHTTP(srv.URL, time.Second)

	_, err := g.ValidateDemand(context.Background(), "x")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T %v", err, err)
	}
	if se.Status != http.StatusInternalServerError || se.Message != "OpenAI API key not configured" || se.Op != OpValidateDemand {
		t.Fatalf("unexpected service error: %+v", se)
	}
	if !strings.Contains(se.Error(), "status=500") {
		t.Fatalf("error text should carry status: %q", se.Error())
	}
}

func TestHTTPGateway_NonJSONErrorBody(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})
	g := NewHTTP(srv.URL, time.Second)

	_, err := g.SearchReddit(context.Background(), "x")
	var se *ServiceError
	if !errors.As(err, &se) || se.Message != "upstream down" || se.Status != http.StatusBadGateway {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPGateway_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewHTTP(url, time.Second)
	_, err := g.GenerateNiches(context.Background(), session.UserProfile{})
	if !IsServiceError(err) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestHTTPGateway_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	g := NewHTTP(srv.URL, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.GenerateNiches(ctx, session.UserProfile{})
	if !IsServiceError(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline service error, got %v", err)
	}
}

func TestHTTPGateway_UndecodableShape(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"niches": {"not": "a list"}}`)
	})
	g := NewHTTP(srv.URL, time.Second)

	if _, err := g.GenerateNiches(context.Background(), session.UserProfile{}); !IsServiceError(err) {
		t.Fatalf("expected service error for wrong shape, got %v", err)
	}
}

func TestHTTPGateway_DemandLengthMismatch(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"labels": ["Jan", "Feb"], "searchVolume": [1], "trend": "Stable"}`)
	})
	g := NewHTTP(srv.URL, time.Second)

	if _, err := g.ValidateDemand(context.Background(), "x"); !IsServiceError(err) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestHTTPGateway_MissingArraysTreatedAsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		call   func(g *HTTPGateway) (int, error)
		fields []string
	}{
		{
			name: "niches missing",
			body: `{}`,
			call: func(g *HTTPGateway) (int, error) {
				v, err := g.GenerateNiches(context.Background(), session.UserProfile{})
				return len(v), err
			},
			fields: []string{"niches"},
		},
		{
			name: "niches null",
			body: `{"niches": null}`,
			call: func(g *HTTPGateway) (int, error) {
				v, err := g.GenerateNiches(context.Background(), session.UserProfile{})
				return len(v), err
			},
			fields: []string{"niches"},
		},
		{
			name: "posts missing",
			body: `{"status": "ok"}`,
			call: func(g *HTTPGateway) (int, error) {
				v, err := g.SearchReddit(context.Background(), "x")
				return len(v), err
			},
			fields: []string{"redditPosts"},
		},
		{
			name: "analysis missing",
			body: `{}`,
			call: func(g *HTTPGateway) (int, error) {
				v, err := g.ProcessPainPoints(context.Background(), []string{"c"})
				return len(v.Clusters), err
			},
			fields: []string{"analysis"},
		},
		{
			name: "cluster pain points missing",
			body: `{"analysis": {"clusters": [{"name": "Payments", "themes": ["cash"], "quotes": ["ugh"]}]}}`,
			call: func(g *HTTPGateway) (int, error) {
				v, err := g.ProcessPainPoints(context.Background(), []string{"c"})
				if err == nil && v.Clusters[0].PainPoints == nil {
					return -1, nil
				}
				return len(v.Clusters), err
			},
			fields: []string{"analysis.clusters[0].painPoints"},
		},
		{
			name: "ideas missing",
			body: `{}`,
			call: func(g *HTTPGateway) (int, error) {
				v, err := g.GenerateIdeas(context.Background(), nil, session.UserProfile{})
				return len(v), err
			},
			fields: []string{"ideas"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tc.body)
			})
			var reported []string
			g := NewHTTP(srv.URL, time.Second, WithMalformedHook(func(e MalformedResponseError) {
				reported = append(reported, e.Field)
			}))
			n, err := tc.call(g)
			if err != nil {
				t.Fatalf("malformed response must not fail the call: %v", err)
			}
			if n < 0 {
				t.Fatalf("nested list left nil")
			}
			if len(reported) != len(tc.fields) {
				t.Fatalf("reported=%v, want %v", reported, tc.fields)
			}
			for i := range tc.fields {
				if reported[i] != tc.fields[i] {
					t.Fatalf("reported=%v, want %v", reported, tc.fields)
				}
			}
		})
	}
}

func TestHTTPGateway_ConfigureCredentials(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status": "success", "message": "API credentials configured successfully"}`)
	})
	g := NewHTTP(srv.URL, time.Second)

	err := g.ConfigureCredentials(context.Background(), session.Credentials{OpenAIAPIKey: "sk-test", RedditClientID: "id"})
	if err != nil {
		t.Fatalf("ConfigureCredentials: %v", err)
	}
	body := (*calls)[0].body
	if body["openai_api_key"] != "sk-test" || body["reddit_client_id"] != "id" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestNewHTTP_DefaultBaseURL(t *testing.T) {
	if got := NewHTTP("  ", time.Second).BaseURL(); got != DefaultBaseURL {
		t.Fatalf("BaseURL()=%q, want %q", got, DefaultBaseURL)
	}
}
