package diag

import (
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// Environment carries the host-surface facts that only the caller can
// know: where the defect was observed and what rendered it. Fields
// left empty are filled from the running process where a sensible
// fallback exists (OS, language, timezone).
type Environment struct {
	// URL is the address of the page the defect was observed on.
	URL string

	// Referrer is the page that led to URL, if any.
	Referrer string

	// UserAgent identifies the host surface. When set, browser and OS
	// are derived from it; otherwise the process platform is used.
	UserAgent string

	// Viewport is the rendered surface size and pixel ratio.
	Viewport model.Viewport

	// NavigationTiming carries page-load milestones when the host
	// surface can report them.
	NavigationTiming *model.NavigationTiming
}

// CollectOptions parameterizes one diagnostics snapshot.
type CollectOptions struct {
	// Env is the host-surface environment.
	Env Environment

	// Logs is the console buffer snapshot to filter into the report.
	Logs []model.ConsoleLogEntry

	// Requests is the network buffer snapshot to filter into the report.
	Requests []model.NetworkRequestEntry

	// ProjectID, AppVersion and Environment are caller-supplied report
	// metadata, copied through verbatim.
	ProjectID   string
	AppVersion  string
	Environment string

	// Now overrides the snapshot clock in tests. Zero means time.Now.
	Now time.Time
}

// Collect produces a point-in-time diagnostics snapshot. The log and
// request buffers are filtered down to what is useful in a defect
// report: error-level console lines and failed or erroring requests,
// both preserving their original relative order.
func Collect(opts CollectOptions) model.DiagnosticsSnapshot {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	zone, _ := now.Zone()

	browser, osName := DetectBrowserAndOS(opts.Env.UserAgent)
	if opts.Env.UserAgent == "" {
		osName = hostOS()
	}

	viewport := opts.Env.Viewport
	if viewport.PixelRatio == 0 {
		viewport.PixelRatio = 1
	}

	return model.DiagnosticsSnapshot{
		URL:              opts.Env.URL,
		Referrer:         opts.Env.Referrer,
		Timestamp:        now.UTC().Format(time.RFC3339Nano),
		Timezone:         zone,
		Viewport:         viewport,
		Browser:          browser,
		OS:               osName,
		Language:         localeLanguage(),
		AppVersion:       opts.AppVersion,
		Environment:      opts.Environment,
		ProjectID:        opts.ProjectID,
		Logs:             filterLogs(opts.Logs),
		Requests:         filterRequests(opts.Requests),
		NavigationTiming: opts.Env.NavigationTiming,
	}
}

// filterLogs keeps error-level entries only, in original order.
func filterLogs(logs []model.ConsoleLogEntry) []model.ConsoleLogEntry {
	out := make([]model.ConsoleLogEntry, 0, len(logs))
	for _, entry := range logs {
		if entry.Level == model.LevelError {
			out = append(out, entry)
		}
	}
	return out
}

// filterRequests keeps failed or erroring entries only, in original
// order. Successful requests carry no diagnostic value in a report.
func filterRequests(requests []model.NetworkRequestEntry) []model.NetworkRequestEntry {
	out := make([]model.NetworkRequestEntry, 0, len(requests))
	for _, entry := range requests {
		if entry.Failed() {
			out = append(out, entry)
		}
	}
	return out
}
