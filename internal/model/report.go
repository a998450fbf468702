package model

import "strings"

// ReportDraft holds the free-text fields the caller collects from the
// user. The pipeline only reads it at submit time.
type ReportDraft struct {
	Title            string
	Description      string
	StepsToReproduce string
	ExpectedBehavior string
	ActualBehavior   string
}

// Steps splits the steps-to-reproduce text into one entry per
// non-blank line, trimmed of surrounding whitespace.
func (d ReportDraft) Steps() []string {
	steps := make([]string, 0)
	for line := range strings.SplitSeq(d.StepsToReproduce, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		steps = append(steps, line)
	}
	return steps
}

// Reporter identifies who filed the report. All fields are optional;
// Anonymous is inferred when no identifying field is present.
type Reporter struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	IP        string `json:"ip,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// ReportPayload is the JSON body POSTed to the report endpoint.
type ReportPayload struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Steps            []string            `json:"steps"`
	ExpectedBehavior string              `json:"expectedBehavior"`
	ActualBehavior   string              `json:"actualBehavior"`
	Diagnostics      DiagnosticsSnapshot `json:"diagnostics"`
	Assets           []AssetReference    `json:"assets"`
	ProjectID        string              `json:"projectId,omitempty"`
	AppVersion       string              `json:"appVersion,omitempty"`
	Environment      string              `json:"environment,omitempty"`
	User             *Reporter           `json:"user,omitempty"`
}

// ReportResponse is the backend's acknowledgement of a submitted
// report. Backends may return additional fields; only ID and Message
// are interpreted.
type ReportResponse struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}
