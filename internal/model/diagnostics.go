package model

// LogLevel is the severity of a recorded console line.
type LogLevel string

// Console log levels, ordered from least to most severe.
const (
	LevelLog   LogLevel = "log"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// ConsoleLogEntry is one recorded console line.
type ConsoleLogEntry struct {
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
}

// Transport identifies which request-issuing primitive produced a
// network entry. The values are part of the report wire format and
// match what the receiving backends already store.
type Transport string

// Request-issuing primitives.
const (
	// TransportFetch marks entries recorded from the promise-style
	// transport (the instrumented round tripper).
	TransportFetch Transport = "fetch"

	// TransportXHR marks entries recorded from the callback-style
	// transport.
	TransportXHR Transport = "xhr"
)

// NetworkRequestEntry is one recorded request outcome. A request that
// fails before the transport completes has Error set and no Status.
type NetworkRequestEntry struct {
	Transport  Transport `json:"transport"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Status     int       `json:"status,omitempty"`
	OK         *bool     `json:"ok,omitempty"`
	DurationMS int64     `json:"durationMs"`
	Timestamp  string    `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the entry represents an unsuccessful outcome:
// either a connection-level failure or a non-2xx response.
func (e NetworkRequestEntry) Failed() bool {
	if e.Error != "" {
		return true
	}
	return e.OK != nil && !*e.OK
}

// Viewport describes the rendered host surface dimensions.
type Viewport struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// NavigationTiming carries page-load milestones in milliseconds, when
// the host surface can report them.
type NavigationTiming struct {
	DOMComplete  float64 `json:"domComplete,omitempty"`
	LoadEventEnd float64 `json:"loadEventEnd,omitempty"`
	ResponseEnd  float64 `json:"responseEnd,omitempty"`
}

// DiagnosticsSnapshot is a point-in-time record of the environment the
// defect was observed in, plus the filtered log and request buffers
// (error-level logs only; failed or erroring requests only).
type DiagnosticsSnapshot struct {
	URL              string                `json:"url"`
	Referrer         string                `json:"referrer"`
	Timestamp        string                `json:"timestamp"`
	Timezone         string                `json:"timezone"`
	Viewport         Viewport              `json:"viewport"`
	Browser          string                `json:"browser"`
	OS               string                `json:"os"`
	Language         string                `json:"language"`
	AppVersion       string                `json:"appVersion,omitempty"`
	Environment      string                `json:"environment,omitempty"`
	ProjectID        string                `json:"projectId,omitempty"`
	Logs             []ConsoleLogEntry     `json:"logs,omitempty"`
	Requests         []NetworkRequestEntry `json:"requests,omitempty"`
	NavigationTiming *NavigationTiming     `json:"navigationTiming,omitempty"`
}
