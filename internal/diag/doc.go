// Package diag provides the always-on diagnostic ring buffers that
// record console output and network activity, and the snapshot
// collector that folds them into a point-in-time diagnostics record
// for a bug report.
//
// The interceptors are explicit wrapper objects that own references to
// the primitives they wrap and are installed and uninstalled
// through a lifecycle call. While installed they are transparent: every
// intercepted call is forwarded unchanged and its outcome recorded on
// the side. Both buffers are capacity-bounded; on overflow the oldest
// entries are dropped first.
//
// Install/uninstall is process-wide, singleton-scoped state. Only one
// active install should exist per primitive at a time, and install and
// uninstall are idempotent and symmetric so a patched primitive can
// never leak across reporting sessions.
package diag
