package service

import (
	"context"
	"errors"
	"testing"

	"github.com/voxreel/api/internal/model"
)

type fakeFootageSearcher struct {
	results map[string][]model.Footage
	err     error
	calls   int
}

func (f *fakeFootageSearcher) Search(ctx context.Context, query string) ([]model.Footage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type memFootageCache struct {
	entries map[string][]model.Footage
}

func newMemFootageCache() *memFootageCache {
	return &memFootageCache{entries: make(map[string][]model.Footage)}
}

func (c *memFootageCache) Get(ctx context.Context, query string) ([]model.Footage, bool) {
	v, ok := c.entries[query]
	return v, ok
}

func (c *memFootageCache) Set(ctx context.Context, query string, candidates []model.Footage) {
	c.entries[query] = candidates
}

func TestSearchQuery_KeywordExtraction(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"The sun rises over the mountains.", "sun rises over"},
		{"A cat!", "cat"},
		{"the and of", "nature"},
		{"", "nature"},
	}
	for _, tc := range cases {
		if got := searchQuery(tc.text); got != tc.want {
			t.Errorf("searchQuery(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestFindCandidates_RankedResults(t *testing.T) {
	fs := &fakeFootageSearcher{results: map[string][]model.Footage{
		"sun rises over": {
			{ID: "a", Score: 1.0, URL: "https://v/a.mp4"},
			{ID: "b", Score: 0.5, URL: "https://v/b.mp4"},
		},
	}}
	svc := NewFootageService(fs, nil)

	candidates, err := svc.FindCandidates(context.Background(), "The sun rises over the mountains.")
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Score < candidates[1].Score {
		t.Error("candidates not in descending score order")
	}
}

func TestFindCandidates_ZeroResultsIsNotAnError(t *testing.T) {
	fs := &fakeFootageSearcher{results: map[string][]model.Footage{}}
	svc := NewFootageService(fs, nil)

	candidates, err := svc.FindCandidates(context.Background(), "obscure phrase entirely")
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestFindCandidates_CacheHitSkipsProvider(t *testing.T) {
	fs := &fakeFootageSearcher{results: map[string][]model.Footage{
		"ocean waves crash": {{ID: "a", Score: 1.0, URL: "https://v/a.mp4"}},
	}}
	cache := newMemFootageCache()
	svc := NewFootageService(fs, cache)
	ctx := context.Background()

	if _, err := svc.FindCandidates(ctx, "Ocean waves crash"); err != nil {
		t.Fatalf("first FindCandidates failed: %v", err)
	}
	if _, err := svc.FindCandidates(ctx, "Ocean waves crash"); err != nil {
		t.Fatalf("second FindCandidates failed: %v", err)
	}
	if fs.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", fs.calls)
	}
}

func TestFindCandidates_ProviderErrorPropagates(t *testing.T) {
	fs := &fakeFootageSearcher{err: errors.New("pexels down")}
	svc := NewFootageService(fs, nil)

	if _, err := svc.FindCandidates(context.Background(), "anything"); err == nil {
		t.Fatal("expected error")
	}
}
