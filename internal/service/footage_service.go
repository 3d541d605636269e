package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxreel/api/internal/model"
)

// FootageSearcher is the footage provider contract.
type FootageSearcher interface {
	Search(ctx context.Context, query string) ([]model.Footage, error)
}

// FootageCache is a non-authoritative cache of recent search results. A miss
// or a cache failure never changes what the provider returns.
type FootageCache interface {
	Get(ctx context.Context, query string) ([]model.Footage, bool)
	Set(ctx context.Context, query string, candidates []model.Footage)
}

// FootageService wraps the footage provider: extracts a search query from
// sentence text and returns ranked candidates. Zero candidates is a valid
// result, not an error.
type FootageService struct {
	searcher FootageSearcher
	cache    FootageCache
}

// NewFootageService creates the matcher. cache may be nil.
func NewFootageService(searcher FootageSearcher, cache FootageCache) *FootageService {
	return &FootageService{searcher: searcher, cache: cache}
}

// FindCandidates returns candidates ranked descending by score. The top
// candidate is the default selection.
func (s *FootageService) FindCandidates(ctx context.Context, sentenceText string) ([]model.Footage, error) {
	query := searchQuery(sentenceText)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, query); ok {
			return cached, nil
		}
	}

	candidates, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, query, candidates)
	}
	return candidates, nil
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "it": true,
	"this": true, "that": true, "be": true, "as": true, "by": true,
}

// searchQuery keeps the first three content words of the sentence.
func searchQuery(text string) string {
	words := strings.Fields(strings.ToLower(text))
	keywords := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w == "" || stopwords[w] {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 3 {
			break
		}
	}
	if len(keywords) == 0 {
		return "nature"
	}
	return strings.Join(keywords, " ")
}

// RedisFootageCache caches search results in redis with a TTL. All redis
// failures are swallowed: the cache is an optimization, not a source of
// truth.
type RedisFootageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisFootageCache(rdb *redis.Client, ttl time.Duration) *RedisFootageCache {
	return &RedisFootageCache{rdb: rdb, ttl: ttl}
}

func (c *RedisFootageCache) Get(ctx context.Context, query string) ([]model.Footage, bool) {
	data, err := c.rdb.Get(ctx, "footage:"+query).Bytes()
	if err != nil {
		return nil, false
	}
	var candidates []model.Footage
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, false
	}
	return candidates, true
}

func (c *RedisFootageCache) Set(ctx context.Context, query string, candidates []model.Footage) {
	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, "footage:"+query, data, c.ttl).Err(); err != nil {
		log.Printf("footage cache write failed: %v", err)
	}
}
