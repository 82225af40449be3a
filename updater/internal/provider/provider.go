package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/trendrank/trendrank/pkg/types"
)

// Table holds one series per keyword, keyed by the keyword exactly as sent.
// Keywords the provider had no data for may be absent.
type Table map[string][]float64

// Provider fetches interest-over-time series for a batch of keywords.
type Provider interface {
	Interest(ctx context.Context, keywords []string, w types.Window) (Table, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, keywords []string, w types.Window) (Table, error)

// Interest calls f.
func (f Func) Interest(ctx context.Context, keywords []string, w types.Window) (Table, error) {
	return f(ctx, keywords, w)
}

// StatusError is returned when the provider answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// rateLimitMarkers are substrings that identify throttling in error text.
// Providers and client libraries disagree on wording, so matching is loose.
var rateLimitMarkers = []string{"429", "rate", "limit", "quota"}

// IsRateLimited reports whether err signals transient throttling by the
// provider. Any other error is fatal for the current cycle.
//
// A StatusError is judged by its code alone. For other errors the markers are
// matched against the cause of any *url.Error, never the request URL, whose
// query carries keywords such as "Corporate Gifts".
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
		if err == nil {
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
