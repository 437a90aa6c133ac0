package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultLimit caps the number of results when Params.Limit is not set.
const DefaultLimit = 6

// Provider tags reported on responses and results.
const (
	ProviderSerpAPI = "serpapi"
	ProviderMock    = "mock"
)

// Status reports whether a lookup reached its provider.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Params describes one pricing search.
type Params struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
	Currency string `json:"currency,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (p Params) limit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}
	return p.Limit
}

// Result is one normalized price estimate. It is the staging form for a
// budget item and is never persisted directly.
type Result struct {
	Title     string           `json:"title"`
	PriceText string           `json:"price_text,omitempty"`
	Price     *decimal.Decimal `json:"price_value,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	SourceURL string           `json:"source_url,omitempty"`
	Source    string           `json:"source"`
	Seller    string           `json:"seller,omitempty"`
	Relevance float64          `json:"relevance_score,omitempty"`
}

// Meta echoes the request a response answers.
type Meta struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Response is the outcome of a lookup. Provider failures are reported through
// Status and Warnings, never as errors.
type Response struct {
	Results  []Result `json:"results"`
	Provider string   `json:"source"`
	Status   Status   `json:"status"`
	Warnings []string `json:"warnings,omitempty"`
	Meta     Meta     `json:"meta"`
}

// Degraded reports whether the provider could not serve the request.
func (r Response) Degraded() bool { return r.Status == StatusDegraded }

// Lookup searches an external provider for price estimates.
type Lookup interface {
	Search(ctx context.Context, params Params) Response
}

func degraded(provider string, params Params, warning string) Response {
	return Response{
		Results:  []Result{},
		Provider: provider,
		Status:   StatusDegraded,
		Warnings: []string{warning},
		Meta:     Meta{Query: params.Query, Location: params.Location, Currency: params.Currency},
	}
}
