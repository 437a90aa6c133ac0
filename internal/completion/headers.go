package completion

import (
	"context"
	"net/http"
	"strings"
)

type refererKey struct{}

// WithReferer attaches the caller's origin to ctx. It is sent upstream as the
// HTTP-Referer header.
func WithReferer(ctx context.Context, referer string) context.Context {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return ctx
	}
	return context.WithValue(ctx, refererKey{}, referer)
}

// RefererFrom returns the referer stored by WithReferer.
func RefererFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(refererKey{}).(string)
	return v, ok && v != ""
}

// attributionTransport adds the OpenRouter app attribution headers.
type attributionTransport struct {
	base           http.RoundTripper
	defaultReferer string
	title          string
}

func (t attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	referer, ok := RefererFrom(req.Context())
	if !ok {
		referer = t.defaultReferer
	}
	if referer != "" {
		req.Header.Set("HTTP-Referer", referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
