// Package worker contains the stateless processing units of the outreach
// engine: the send-time scheduler, the variant assigner, the dispatcher,
// the channel adapters, and the webhook ingestor.
//
// None of these hold long-lived in-process timers. Each exposes a run-once
// operation invoked by an external trigger (cron over HTTP, or the optional
// cmd/worker poller); correctness never depends on process uptime. The
// durable queue in Postgres is the only channel between runs.
//
// Channel adapters are split into individual files:
//   - channel_email.go:    AWS SES v2 transport
//   - channel_linkedin.go: LinkedIn automation provider REST transport
package worker
