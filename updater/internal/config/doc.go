// Package config loads and watches the updater configuration.
//
// Every field has a compiled-in default (the eight craft categories, region
// "IN", window "now 7-d", output public/trends.json, top 5, batches of 5,
// 3 attempts, 30s poll). An optional YAML file overrides them; its path comes
// from the TRENDRANK_CONFIG environment variable (default trendrank.yaml) and a
// missing file is not an error.
//
// Top-level types:
//   - Config: keywords, region, timeframe, output_path, top_n, batch_size,
//     max_attempts, poll_interval, provider, mirror, notify, metrics
//   - ProviderConfig / AuthConfig: endpoint, timeout, auth mode
//     (apikey|bearer|none); Key() and Token() resolve from the environment
//   - MirrorConfig: optional S3-compatible copy of the artifact
//   - NotifyConfig: webhooks (slack|http) and an AMQP queue
//   - MetricsConfig: /metrics listen address and textfile path
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. Invalid reloads are logged and
// dropped.
package config
