package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/config"
)

// maxErrorBody caps how much of a non-200 body is kept in StatusError.
const maxErrorBody = 512

// HTTPProvider queries a JSON interest-over-time endpoint.
//
// Request: GET {endpoint}?keyword=a&keyword=b&timeframe=now+7-d&geo=IN
// Response: {"a": [12, 40, 37], "b": []}
type HTTPProvider struct {
	endpoint *url.URL
	client   *http.Client
}

// NewHTTP builds an HTTPProvider from the provider configuration.
// It builds the HTTP client once and reuses it across calls.
func NewHTTP(cfg config.ProviderConfig) (*HTTPProvider, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("provider: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("provider: endpoint %q must be http or https", cfg.Endpoint)
	}
	return &HTTPProvider{
		endpoint: u,
		client: &http.Client{
			Transport: &authRoundTripper{base: http.DefaultTransport, auth: cfg.Auth},
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// Interest implements Provider.
func (p *HTTPProvider) Interest(ctx context.Context, keywords []string, w types.Window) (Table, error) {
	u := *p.endpoint
	q := u.Query()
	for _, kw := range keywords {
		q.Add("keyword", kw)
	}
	if w.Timeframe != "" {
		q.Set("timeframe", w.Timeframe)
	}
	if w.Region != "" {
		q.Set("geo", w.Region)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var table Table
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if table == nil {
		table = Table{}
	}
	return table, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	}
	return t.base.RoundTrip(req)
}
