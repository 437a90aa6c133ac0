package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/planwise/planwise/internal/logger"
)

const (
	// DefaultEndpoint is the SerpAPI search endpoint.
	DefaultEndpoint = "https://serpapi.com/search.json"
	userAgent       = "PlanwiseBot/1.0 (+https://planwise.ai; contact: support@planwise.ai)"

	warnMissingKey = "SERPAPI_API_KEY not configured. Add it to .env to enable live pricing."
	warnNoResults  = "No pricing results returned"
)

// SerpAPI looks up prices through Google results served by SerpAPI.
type SerpAPI struct {
	client   *resty.Client
	apiKey   string
	endpoint string
	log      *logger.Logger
}

// SerpAPIOptions configures NewSerpAPI.
type SerpAPIOptions struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	Logger   *logger.Logger
}

func NewSerpAPI(opts SerpAPIOptions) *SerpAPI {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &SerpAPI{
		client:   client,
		apiKey:   strings.TrimSpace(opts.APIKey),
		endpoint: opts.Endpoint,
		log:      opts.Logger,
	}
}

type serpRecord struct {
	Title          string          `json:"title"`
	Price          string          `json:"price"`
	ExtractedPrice json.RawMessage `json:"extracted_price"`
	Currency       string          `json:"currency"`
	Source         string          `json:"source"`
	Link           string          `json:"link"`
	Position       int             `json:"position"`
}

type serpResponse struct {
	ShoppingResults []serpRecord    `json:"shopping_results"`
	LocalResults    json.RawMessage `json:"local_results"`
	Error           string          `json:"error"`
}

// records returns shopping results, falling back to local results. SerpAPI
// serves local results either as a list or as an object holding "places".
func (r serpResponse) records() []serpRecord {
	if len(r.ShoppingResults) > 0 {
		return r.ShoppingResults
	}
	if len(r.LocalResults) == 0 {
		return nil
	}
	var list []serpRecord
	if err := json.Unmarshal(r.LocalResults, &list); err == nil {
		return list
	}
	var wrapped struct {
		Places []serpRecord `json:"places"`
	}
	if err := json.Unmarshal(r.LocalResults, &wrapped); err == nil {
		return wrapped.Places
	}
	return nil
}

func (s *SerpAPI) Search(ctx context.Context, params Params) Response {
	params.Query = strings.TrimSpace(params.Query)
	params.Currency = strings.ToUpper(strings.TrimSpace(params.Currency))
	if s.apiKey == "" {
		return degraded(ProviderMock, params, warnMissingKey)
	}
	if params.Query == "" {
		return degraded(ProviderSerpAPI, params, "pricing query is empty")
	}
	limit := params.limit()

	query := map[string]string{
		"engine":        "google",
		"q":             params.Query,
		"api_key":       s.apiKey,
		"google_domain": "google.com",
		"num":           strconv.Itoa(limit),
	}
	if params.Location != "" {
		query["location"] = params.Location
	}
	if len(params.Currency) >= 2 {
		query["gl"] = params.Currency[:2]
	}

	resp, err := s.client.R().SetContext(ctx).SetQueryParams(query).Get(s.endpoint)
	if err != nil {
		s.log.Warn("serpapi request failed", "error", err)
		return degraded(ProviderSerpAPI, params, fmt.Sprintf("SerpAPI request failed: %v", err))
	}
	if resp.IsError() {
		code := resp.StatusCode()
		s.log.Warn("serpapi returned error status", "status", code)
		return degraded(ProviderSerpAPI, params, fmt.Sprintf("SerpAPI request failed with status %d: %s", code, http.StatusText(code)))
	}

	var payload serpResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return degraded(ProviderSerpAPI, params, fmt.Sprintf("SerpAPI response could not be decoded: %v", err))
	}
	if payload.Error != "" {
		return degraded(ProviderSerpAPI, params, "SerpAPI error: "+payload.Error)
	}

	results := normalizeRecords(payload.records(), limit, params.Currency)
	out := Response{
		Results:  results,
		Provider: ProviderSerpAPI,
		Status:   StatusOK,
		Meta:     Meta{Query: params.Query, Location: params.Location, Currency: params.Currency},
	}
	if len(results) == 0 {
		out.Warnings = []string{warnNoResults}
	}
	return out
}

// normalizeRecords maps the first limit records and then drops the untitled
// ones, so fewer than limit results may come back.
func normalizeRecords(records []serpRecord, limit int, currency string) []Result {
	if len(records) > limit {
		records = records[:limit]
	}
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		title := cleanText(rec.Title)
		if title == "" {
			continue
		}
		price := parseExtracted(rec.ExtractedPrice)
		if price == nil {
			price = parsePriceText(rec.Price)
		}
		res := Result{
			Title:     title,
			PriceText: strings.TrimSpace(rec.Price),
			Price:     price,
			Currency:  strings.ToUpper(strings.TrimSpace(rec.Currency)),
			SourceURL: cleanLink(rec.Link),
			Source:    ProviderSerpAPI,
			Seller:    cleanText(rec.Source),
		}
		if res.Currency == "" {
			res.Currency = currency
		}
		if rec.Position > 0 {
			res.Relevance = 1 / float64(rec.Position)
		}
		results = append(results, res)
	}
	return results
}
