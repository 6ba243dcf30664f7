package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trade-journal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Google News</title>
    <item>
      <title>Sensex rallies 500 points</title>
      <link>https://example.com/a</link>
      <pubDate>Mon, 11 Mar 2024 09:30:00 GMT</pubDate>
      <source url="https://example.com">Example Times</source>
    </item>
    <item>
      <title>Nifty ends flat</title>
      <link>https://example.com/b</link>
      <pubDate>Mon, 11 Mar 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Third headline</title>
      <link>https://example.com/c</link>
    </item>
  </channel>
</rss>`

func setupService(url string, maxItems int, ttl time.Duration) *Service {
	return &Service{
		client:   resty.New(),
		feedURL:  url,
		maxItems: maxItems,
		logger:   zap.NewNop(),
		ttl:      ttl,
	}
}

func TestLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	s := setupService(server.URL, 2, time.Hour)
	items := s.Latest(context.Background())

	// maxItems caps the list.
	require.Len(t, items, 2)
	assert.Equal(t, "Sensex rallies 500 points", items[0].Title)
	assert.Equal(t, "Example Times", items[0].Source)

	// Missing source falls back to the feed name.
	assert.Equal(t, "Google News", items[1].Source)
}

func TestLatest_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	s := setupService(server.URL, 15, time.Hour)
	ctx := context.Background()

	s.Latest(ctx)
	s.Latest(ctx)
	s.Latest(ctx)

	assert.Equal(t, int32(1), hits.Load())
}

func TestLatest_ServesStaleOnFailure(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	s := setupService(server.URL, 15, time.Nanosecond) // everything is instantly stale
	ctx := context.Background()

	first := s.Latest(ctx)
	require.NotEmpty(t, first)

	failing.Store(true)
	second := s.Latest(ctx)
	assert.Equal(t, first, second, "stale cache must be served when the feed is down")
}

func TestLatest_ColdCacheFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := setupService(server.URL, 15, time.Hour)
	items := s.Latest(context.Background())

	// Never an error surface; the panel just renders empty.
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNewService(t *testing.T) {
	cfg := &config.News{FeedURL: "https://example.com/rss", MaxItems: 15, CacheTTL: 15}
	s := NewService(cfg, zap.NewNop())
	assert.Equal(t, 15, s.maxItems)
	assert.Equal(t, 15*time.Minute, s.ttl)
}
