package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedditFixture(t *testing.T) (*RedditHTTP, *atomic.Int32) {
	t.Helper()
	var tokens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "id" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error": "invalid_grant"}`)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		tokens.Add(1)
		_, _ = io.WriteString(w, `{"access_token": "tok", "expires_in": 3600}`)
	})
	mux.HandleFunc("/r/freelance/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "IdeaSpark/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "late invoices", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
		_, _ = io.WriteString(w, `{"data": {"children": [
			{"kind": "t3", "data": {"title": "Help with clients", "selftext": "body", "permalink": "/r/freelance/comments/a1/help/", "subreddit": "freelance", "score": 7, "num_comments": 2}}
		]}}`)
	})
	mux.HandleFunc("/r/freelance/comments/a1/help", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"data": {"children": [{"kind": "t3", "data": {}}]}},
			{"data": {"children": [
				{"kind": "t1", "data": {"body": "use a deposit", "score": 4, "author": "amy"}},
				{"kind": "more", "data": {}}
			]}}
		]`)
	})
	mux.HandleFunc("/r/freelance/about", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": {"subscribers": 123456}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewRedditHTTP(5*time.Second).WithEndpoints(srv.URL+"/token", srv.URL)
	return client, &tokens
}

func TestRedditHTTPRequiresCredentials(t *testing.T) {
	client, _ := newRedditFixture(t)
	assert.False(t, client.Configured())
	_, err := client.Search(context.Background(), "freelance", "x", 5)
	assert.ErrorIs(t, err, ErrRedditNotConfigured)
}

func TestRedditHTTPSearchCommentsAbout(t *testing.T) {
	client, tokens := newRedditFixture(t)
	client.SetCredentials(RedditCredentials{ClientID: "id", ClientSecret: "secret"})
	ctx := context.Background()

	subs, err := client.Search(ctx, "freelance", "late invoices", 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://www.reddit.com/r/freelance/comments/a1/help/", subs[0].URL())
	assert.Equal(t, 2, subs[0].NumComments)

	comments, err := client.Comments(ctx, subs[0].Permalink, 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "amy", comments[0].Author)

	n, err := client.Subscribers(ctx, "freelance")
	require.NoError(t, err)
	assert.Equal(t, 123456, n)

	// token is cached across calls
	assert.Equal(t, int32(1), tokens.Load())
}

func TestRedditHTTPBadCredentials(t *testing.T) {
	client, _ := newRedditFixture(t)
	client.SetCredentials(RedditCredentials{ClientID: "id", ClientSecret: "wrong"})
	_, err := client.Subscribers(context.Background(), "freelance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}
