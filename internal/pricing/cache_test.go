package pricing

import (
	"context"
	"testing"
	"time"
)

type countingLookup struct {
	calls int
	resp  Response
}

func (c *countingLookup) Search(_ context.Context, _ Params) Response {
	c.calls++
	return c.resp
}

func TestCachedServesRepeatLookups(t *testing.T) {
	next := &countingLookup{resp: Response{
		Results:  []Result{{Title: "Tent", Source: ProviderSerpAPI}},
		Provider: ProviderSerpAPI,
		Status:   StatusOK,
	}}
	cached := Cached{Next: next, Cache: NewMemoryCache(time.Minute), TTL: time.Minute}

	ctx := context.Background()
	first := cached.Search(ctx, Params{Query: "Party  tent", Currency: "usd"})
	second := cached.Search(ctx, Params{Query: "party tent", Currency: "USD"})
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if second.Results[0].Title != first.Results[0].Title {
		t.Fatalf("cached response differs")
	}
}

func TestCachedSkipsDegradedResponses(t *testing.T) {
	next := &countingLookup{resp: degraded(ProviderMock, Params{Query: "x"}, warnMissingKey)}
	cached := Cached{Next: next, Cache: NewMemoryCache(time.Minute), TTL: time.Minute}

	ctx := context.Background()
	cached.Search(ctx, Params{Query: "x"})
	cached.Search(ctx, Params{Query: "x"})
	if next.calls != 2 {
		t.Fatalf("degraded responses must not be cached, calls=%d", next.calls)
	}
}

func TestCacheKeyNormalizes(t *testing.T) {
	a := CacheKey(Params{Query: " Venue  NYC ", Location: "NYC", Currency: "usd"})
	b := CacheKey(Params{Query: "venue nyc", Location: "nyc", Currency: "USD", Limit: DefaultLimit})
	if a != b {
		t.Fatalf("expected equal keys")
	}
	if a == CacheKey(Params{Query: "venue nyc", Limit: 3}) {
		t.Fatalf("limit must be part of the key")
	}
}
