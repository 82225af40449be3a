// Package metrics exposes the updater's Prometheus instrumentation.
//
// A Metrics value owns a private registry. It can be served over HTTP with
// Handler or dumped to a node_exporter textfile with WriteTextfile for hosts
// where the updater runs from cron and nothing scrapes it directly.
package metrics
