// Package provider is the boundary to the external trends data source.
//
// Provider is a one-method interface: given up to a batch of keywords and a
// query window it returns a Table of per-keyword series, or an error. Callers
// only distinguish errors by IsRateLimited, which reports whether a retry is
// worthwhile.
//
// HTTPProvider (http.go) is the bundled implementation. It queries a JSON
// interest-over-time endpoint and authenticates through a shared
// authRoundTripper (API key header or bearer token). Non-200 responses become
// *StatusError so the status code survives wrapping.
package provider
