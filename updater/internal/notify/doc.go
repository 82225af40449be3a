// Package notify delivers a summary of each update cycle to external
// receivers: Slack or generic HTTP webhooks and a RabbitMQ queue.
//
// Delivery is best-effort. Failures are logged by Multi and never change the
// outcome of the cycle that produced the event.
package notify
