package backend

import (
	"strings"
	"testing"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	received := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	t.Run("full report", func(t *testing.T) {
		t.Parallel()
		payload := testPayload("save loses draft")
		payload.ExpectedBehavior = "draft is kept"
		payload.ActualBehavior = "draft disappears"
		payload.User = &model.Reporter{Name: "Kim", Email: "kim@example.test"}
		payload.Diagnostics = model.DiagnosticsSnapshot{
			URL:     "http://app.example.test/editor",
			Browser: "Firefox 133",
			Logs:    []model.ConsoleLogEntry{{Message: "TypeError"}},
		}

		var sb strings.Builder
		if err := WriteSummary(&sb, "r1", payload, received); err != nil {
			t.Fatalf("WriteSummary() error = %v", err)
		}
		out := sb.String()

		for _, want := range []string{
			"# Bug Report: save loses draft",
			"`r1`",
			"2026-03-14 10:30:00 UTC",
			"Kim (kim@example.test)",
			"clicking save loses the draft",
			"1. open editor",
			"2. click save",
			"draft is kept",
			"[a1](http://example.test/a1.png)",
			"Console errors: 1",
			"Browser: Firefox 133",
			"Page: http://app.example.test/editor",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q\n%s", want, out)
			}
		}
	})

	t.Run("anonymous reporter and no assets", func(t *testing.T) {
		t.Parallel()
		payload := &model.ReportPayload{
			Title: "blank page",
			User:  &model.Reporter{Anonymous: true},
		}

		var sb strings.Builder
		if err := WriteSummary(&sb, "r2", payload, received); err != nil {
			t.Fatalf("WriteSummary() error = %v", err)
		}
		out := sb.String()

		if !strings.Contains(out, "Anonymous") {
			t.Error("summary missing anonymous reporter")
		}
		if !strings.Contains(out, "No assets attached.") {
			t.Error("summary missing empty-assets note")
		}
		if strings.Contains(out, "## Description") {
			t.Error("summary has description section without description text")
		}
	})
}

func TestReporterText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user *model.Reporter
		want string
	}{
		{name: "nil user", user: nil, want: "Anonymous"},
		{name: "anonymous flag", user: &model.Reporter{Anonymous: true, Name: "x"}, want: "Anonymous"},
		{name: "name and email", user: &model.Reporter{Name: "Kim", Email: "k@x.test"}, want: "Kim (k@x.test)"},
		{name: "name only", user: &model.Reporter{Name: "Kim"}, want: "Kim"},
		{name: "email only", user: &model.Reporter{Email: "k@x.test"}, want: "k@x.test"},
		{name: "id only", user: &model.Reporter{ID: "u-7"}, want: "u-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := reporterText(tt.user); got != tt.want {
				t.Errorf("reporterText() = %q, want %q", got, tt.want)
			}
		})
	}
}
