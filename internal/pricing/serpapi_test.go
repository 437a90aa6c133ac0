package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestSerpAPI(t *testing.T, handler http.HandlerFunc) (*SerpAPI, *url.Values) {
	t.Helper()
	var seen url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "PlanwiseBot/1.0") {
			t.Errorf("unexpected user agent %q", got)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewSerpAPI(SerpAPIOptions{APIKey: "test-key", Endpoint: srv.URL}), &seen
}

func TestSearchWithoutKeyReturnsMock(t *testing.T) {
	lookup := NewSerpAPI(SerpAPIOptions{})
	resp := lookup.Search(context.Background(), Params{Query: "catering", Currency: "USD"})
	if resp.Provider != ProviderMock || resp.Status != StatusDegraded {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results")
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "SERPAPI_API_KEY not configured") {
		t.Fatalf("unexpected warnings %v", resp.Warnings)
	}
}

func TestSearchMapsShoppingResults(t *testing.T) {
	lookup, seen := newTestSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"shopping_results": [
				{"title": "Deluxe <b>Catering</b>", "price": "$1,299.99", "source": "Caterly", "link": "https://caterly.example/pkg?id=9&utm_source=google", "position": 1},
				{"title": "", "price": "$10", "position": 2},
				{"title": "Buffet", "price": "From $300", "extracted_price": 300, "currency": "eur", "position": 4},
				{"title": "Taco Bar", "price": "call for quote", "position": 5}
			]
		}`))
	})

	resp := lookup.Search(context.Background(), Params{Query: "catering quotes", Location: "Austin, Texas", Currency: "usd", Limit: 3})
	if resp.Status != StatusOK || resp.Provider != ProviderSerpAPI {
		t.Fatalf("unexpected response %+v", resp)
	}

	q := *seen
	if q.Get("engine") != "google" || q.Get("q") != "catering quotes" || q.Get("api_key") != "test-key" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("google_domain") != "google.com" || q.Get("num") != "3" || q.Get("gl") != "US" || q.Get("location") != "Austin, Texas" {
		t.Fatalf("unexpected query %v", q)
	}

	// limit applies before untitled records are dropped
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(resp.Results), resp.Results)
	}
	first := resp.Results[0]
	if first.Title != "Deluxe Catering" || first.PriceText != "$1,299.99" || first.Seller != "Caterly" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Price == nil || first.Price.String() != "1299.99" {
		t.Fatalf("unexpected parsed price %v", first.Price)
	}
	if first.Currency != "USD" || first.Relevance != 1 || first.Source != ProviderSerpAPI {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.SourceURL != "https://caterly.example/pkg?id=9" {
		t.Fatalf("tracking params should be dropped, got %q", first.SourceURL)
	}

	second := resp.Results[1]
	if second.Price == nil || second.Price.String() != "300" || second.Currency != "EUR" || second.Relevance != 0.25 {
		t.Fatalf("unexpected second result %+v", second)
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", resp.Warnings)
	}
}

func TestSearchFallsBackToLocalResults(t *testing.T) {
	lookup, _ := newTestSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"local_results": {"places": [{"title": "Hall 9", "price": "$$", "position": 1}]}}`))
	})
	resp := lookup.Search(context.Background(), Params{Query: "venue"})
	if len(resp.Results) != 1 || resp.Results[0].Title != "Hall 9" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
	if resp.Results[0].Price != nil {
		t.Fatalf("expected absent price, got %v", resp.Results[0].Price)
	}
}

func TestSearchEmptyResultsWarns(t *testing.T) {
	lookup, _ := newTestSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	resp := lookup.Search(context.Background(), Params{Query: "venue"})
	if resp.Status != StatusOK || len(resp.Results) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "No pricing results returned" {
		t.Fatalf("unexpected warnings %v", resp.Warnings)
	}
}

func TestSearchErrorStatusDegrades(t *testing.T) {
	lookup, _ := newTestSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	resp := lookup.Search(context.Background(), Params{Query: "venue"})
	if resp.Status != StatusDegraded || resp.Provider != ProviderSerpAPI || len(resp.Results) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "SerpAPI request failed with status 401: Unauthorized" {
		t.Fatalf("unexpected warnings %v", resp.Warnings)
	}
}
