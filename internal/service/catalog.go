package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ideaspark/internal/session"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Relevance weights for matching a profile against subreddit topics.
const (
	interestWeight = 10
	skillWeight    = 8
	problemWeight  = 6
	activityWeight = 5

	maxSuggested = 12
)

// SubredditMeta 子版块元数据 / Catalog entry for one subreddit
type SubredditMeta struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Subscribers   int      `json:"subscribers"`
	Category      string   `json:"category"`
	Topics        []string `json:"topics"`
	ActivityScore float64  `json:"activity_score"`
	LastUpdated   string   `json:"last_updated"`
}

type catalogData struct {
	Subreddits  map[string]SubredditMeta `json:"subreddits"`
	Categories  map[string][]string      `json:"categories"`
	LastUpdated string                   `json:"last_updated"`
}

// Catalog 子版块目录，持久化为 JSON 文件
// Catalog is the subreddit directory, persisted as a JSON file
type Catalog struct {
	mu     sync.RWMutex
	path   string
	data   catalogData
	logger zerolog.Logger
	now    func() time.Time
}

// LoadCatalog reads the catalog at path. A missing file is seeded with the
// default communities; an unreadable one falls back to the defaults without
// being overwritten. An empty path keeps the catalog in memory only.
func LoadCatalog(path string, logger zerolog.Logger) *Catalog {
	c := &Catalog{path: path, logger: logger, now: time.Now}
	data, err := os.ReadFile(path)
	switch {
	case path == "":
		c.data = defaultCatalog(c.stamp())
	case errors.Is(err, os.ErrNotExist):
		c.data = defaultCatalog(c.stamp())
		if err := c.save(); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("seed subreddit catalog")
		}
	case err != nil:
		logger.Warn().Err(err).Str("path", path).Msg("read subreddit catalog, using defaults")
		c.data = defaultCatalog(c.stamp())
	default:
		var parsed catalogData
		if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Subreddits) == 0 {
			logger.Warn().Err(err).Str("path", path).Msg("parse subreddit catalog, using defaults")
			c.data = defaultCatalog(c.stamp())
		} else {
			c.data = parsed
		}
	}
	return c
}

func (c *Catalog) stamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

func (c *Catalog) save() error {
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Relevant scores every subreddit against the profile and returns the best
// matches, highest score first.
func (c *Catalog) Relevant(profile session.UserProfile) []session.SubredditInfo {
	interest := strings.ToLower(profile.ResolvedInterest())
	skill := strings.ToLower(profile.ResolvedSkill())
	problem := strings.ToLower(profile.ResolvedProblem())

	c.mu.RLock()
	out := make([]session.SubredditInfo, 0, len(c.data.Subreddits))
	for name, meta := range c.data.Subreddits {
		score := meta.ActivityScore * activityWeight
		if matchesTopic(interest, meta.Topics) {
			score += interestWeight
		}
		if matchesTopic(skill, meta.Topics) {
			score += skillWeight
		}
		if matchesTopic(problem, meta.Topics) {
			score += problemWeight
		}
		if score <= 0 {
			continue
		}
		info := meta.info(name)
		info.RelevanceScore = &score
		out = append(out, info)
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].RelevanceScore != *out[j].RelevanceScore {
			return *out[i].RelevanceScore > *out[j].RelevanceScore
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxSuggested {
		out = out[:maxSuggested]
	}
	return out
}

// matchesTopic 空字段不参与匹配 / Empty terms never match
func matchesTopic(term string, topics []string) bool {
	if term == "" {
		return false
	}
	for _, topic := range topics {
		if strings.Contains(strings.ToLower(topic), term) {
			return true
		}
	}
	return false
}

// All returns every subreddit, most subscribers first.
func (c *Catalog) All() []session.SubredditInfo {
	c.mu.RLock()
	out := make([]session.SubredditInfo, 0, len(c.data.Subreddits))
	for name, meta := range c.data.Subreddits {
		out = append(out, meta.info(name))
	}
	c.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Subscribers != out[j].Subscribers {
			return out[i].Subscribers > out[j].Subscribers
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (c *Catalog) Categories() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.data.Categories))
	for k, v := range c.data.Categories {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.data.Subreddits))
	for name := range c.data.Subreddits {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// UpdateSubscribers 写入最新订阅数并持久化；未知名称被忽略
// UpdateSubscribers records fresh subscriber counts and persists them; unknown names are ignored
func (c *Catalog) UpdateSubscribers(counts map[string]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stamp := c.stamp()
	for name, n := range counts {
		meta, ok := c.data.Subreddits[name]
		if !ok {
			continue
		}
		meta.Subscribers = n
		meta.LastUpdated = stamp
		c.data.Subreddits[name] = meta
	}
	c.data.LastUpdated = stamp
	return c.save()
}

func (m SubredditMeta) info(key string) session.SubredditInfo {
	name := m.Name
	if name == "" {
		name = key
	}
	return session.SubredditInfo{
		Name:          name,
		DisplayName:   m.DisplayName,
		Subscribers:   m.Subscribers,
		Category:      m.Category,
		ActivityScore: m.ActivityScore,
	}
}

func defaultCatalog(stamp string) catalogData {
	entry := func(name, display, category string, subscribers int, activity float64, topics ...string) SubredditMeta {
		return SubredditMeta{
			Name:          name,
			DisplayName:   display,
			Subscribers:   subscribers,
			Category:      category,
			Topics:        topics,
			ActivityScore: activity,
			LastUpdated:   stamp,
		}
	}
	subs := []SubredditMeta{
		entry("entrepreneur", "Entrepreneur", "business", 3000000, 9, "startup", "business", "entrepreneurship", "marketing"),
		entry("smallbusiness", "Small Business", "business", 500000, 8, "small business", "entrepreneurship", "marketing", "finance"),
		entry("startups", "Startups", "business", 1000000, 9, "startup", "entrepreneurship", "tech", "funding"),
		entry("freelance", "Freelance", "business", 200000, 8, "freelancing", "remote work", "clients", "income"),
		entry("programming", "Programming", "tech", 4000000, 9, "programming", "coding", "development", "software"),
		entry("webdev", "Web Development", "tech", 800000, 8, "web development", "frontend", "backend", "coding"),
		entry("productivity", "Productivity", "lifestyle", 300000, 7, "productivity", "time management", "organization", "efficiency"),
		entry("marketing", "Marketing", "business", 400000, 8, "marketing", "advertising", "branding", "growth"),
		entry("health", "Health", "health", 2000000, 8, "health", "wellness", "fitness", "nutrition"),
		entry("education", "Education", "education", 500000, 7, "education", "learning", "teaching", "skills"),
	}
	data := catalogData{
		Subreddits: make(map[string]SubredditMeta, len(subs)),
		Categories: map[string][]string{
			"business":  {"entrepreneur", "smallbusiness", "startups", "freelance", "marketing"},
			"tech":      {"programming", "webdev"},
			"lifestyle": {"productivity"},
			"health":    {"health"},
			"education": {"education"},
		},
		LastUpdated: stamp,
	}
	for _, s := range subs {
		data.Subreddits[s.Name] = s
	}
	return data
}
