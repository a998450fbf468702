// Package submit assembles and delivers the final bug report.
//
// The submitter uploads captured assets through the configured storage
// provider, builds the JSON payload from the draft, diagnostics
// snapshot, and asset references, runs the caller's pre-submit hook
// (which may transform or veto the payload), and POSTs the result to
// the report endpoint. Reporter identity is resolved best-effort,
// including a cached public IP lookup that never blocks a submission
// for long.
package submit
