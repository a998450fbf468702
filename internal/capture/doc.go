// Package capture implements the screenshot and screen-recording
// engines, the pre-sampling countdown, privacy masking and text
// redaction, and composable asset validation.
//
// The engines are independent of any particular rendering technology.
// They drive the host surface through small interfaces — Screen for
// document introspection and rasterization, Selector for interactive
// region selection, DisplayDevice for permission-gated display
// capture, RecorderFactory for encoding — so the same pipeline runs
// against a live browser bridge, a remote agent, or test fakes. All
// timing-sensitive behavior (countdown ticks, frame settling, byte
// budgets, hard stops) lives here, not in the host.
//
// Page mutations made for privacy (masking, redaction) are always
// restored before an error propagates; capture streams are released
// exactly once on every exit path.
package capture
