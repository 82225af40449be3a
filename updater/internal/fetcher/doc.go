// Package fetcher retrieves and scores the whole keyword set from a provider.
//
// Fetcher.Fetch splits the keywords into consecutive batches of at most
// BatchSize (the provider's per-request limit) and queries each batch in turn.
// A rate-limited batch is retried up to MaxAttempts times in total, sleeping
// 2^attempt × 5s plus up to 2s of jitter before each retry. Any other error,
// or running out of attempts, fails the whole fetch: Fetch never returns
// partial results.
//
// Between batches (not between retries) Fetch pauses 1–2s to stay under the
// provider's rate limit. All sleeps return early when ctx is cancelled.
//
// The sleep and jitter sources are injectable for tests.
package fetcher
