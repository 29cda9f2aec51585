// Package events publishes workflow lifecycle events to NATS.
//
// Every turn emits a small JSON payload per lifecycle transition on subjects
// of the form workflow.<thread_id>.<event>, so external consumers (the SSE
// bridge, editor integrations, dashboards) can follow a thread without
// polling the daemon. Delivery is best effort: a broker outage degrades to
// log lines, it never fails a turn. A Publisher built over a nil connection
// is a no-op, which is how event publishing is disabled by configuration.
package events
