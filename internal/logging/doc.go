// Package logging provides the structured logging foundation for agentd.
//
// The Logger wraps zap with context-aware methods: every log call extracts
// trace correlation (trace_id, span_id), the workflow thread ID, and the
// HTTP request ID from the context so log lines can be joined with traces
// and per-thread activity without the call sites threading those values by
// hand.
//
// Output goes to stdout (JSON or console encoding) and optionally to an
// OpenTelemetry log provider via the otelzap bridge. Levels below Error can
// be sampled to bound volume; Error and above always pass through. A
// redacting encoder scrubs well-known credential field names and token
// patterns before anything reaches the sink.
package logging
