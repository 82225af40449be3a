// Package job runs one complete update cycle: read the previous artifact,
// fetch scores, rank, publish.
//
// Run never returns an error and never panics. Every outcome, including a
// recovered panic, ends up in the Report, which is also logged, recorded in
// metrics and handed to the notifier. A failed cycle never touches the
// published artifact.
package job
