package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"trade-journal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Item is one headline on the dashboard news panel.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	PubDate string `json:"pub_date"`
	Source  string `json:"source"`
}

// rss mirrors the subset of the Google News RSS feed we consume.
type rss struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
			Source  string `xml:"source"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Service fetches market headlines with a short TTL cache so every dashboard
// load does not hit the feed.
type Service struct {
	client   *resty.Client
	feedURL  string
	maxItems int
	logger   *zap.Logger

	mu        sync.RWMutex
	cached    []Item
	fetchedAt time.Time
	ttl       time.Duration
}

// NewService creates a news service from the news config section.
func NewService(cfg *config.News, logger *zap.Logger) *Service {
	return &Service{
		client:   resty.New(),
		feedURL:  cfg.FeedURL,
		maxItems: cfg.MaxItems,
		logger:   logger.Named("news"),
		ttl:      time.Duration(cfg.CacheTTL) * time.Minute,
	}
}

// Latest returns the most recent headlines, from cache when fresh. A fetch
// failure with a warm cache serves the stale items; with a cold cache it
// returns an empty list, never an error page.
func (s *Service) Latest(ctx context.Context) []Item {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		items := s.cached
		s.mu.RUnlock()
		return items
	}
	s.mu.RUnlock()

	items, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch news feed", zap.Error(err))
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.cached != nil {
			return s.cached
		}
		return []Item{}
	}

	s.mu.Lock()
	s.cached = items
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return items
}

func (s *Service) fetch(ctx context.Context) ([]Item, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed returned status %s", resp.Status())
	}

	var feed rss
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, s.maxItems)
	for _, it := range feed.Channel.Items {
		if len(items) >= s.maxItems {
			break
		}
		item := Item{
			Title:   it.Title,
			Link:    it.Link,
			PubDate: it.PubDate,
			Source:  it.Source,
		}
		if item.Title == "" {
			item.Title = "No Title"
		}
		if item.Source == "" {
			item.Source = "Google News"
		}
		items = append(items, item)
	}

	s.logger.Debug("Fetched news feed", zap.Int("items", len(items)))
	return items, nil
}
