// Package model defines the data types shared across the bug-report
// capture-and-submit pipeline: captured assets and their transport
// projections, upload instructions and durable asset references,
// diagnostics snapshots, report drafts and payloads, and the single
// error taxonomy used by every component.
//
// The types mirror the wire protocols exactly (JSON tags are part of
// the external interface), so changing a field name here is a breaking
// protocol change.
package model
