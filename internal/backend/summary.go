package backend

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// WriteSummary renders a human-readable markdown summary of a
// submitted report. The dev server writes one summary file per report
// next to the database so reports can be reviewed without tooling.
func WriteSummary(w io.Writer, id string, payload *model.ReportPayload, received time.Time) error {
	md := markdown.NewMarkdown(w)

	writeSummaryHeader(md, id, payload, received)
	writeSummaryBody(md, payload)
	writeSummaryAssets(md, payload.Assets)
	writeSummaryDiagnostics(md, payload)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Captured with bugsnap*")

	return md.Build()
}

func writeSummaryHeader(md *markdown.Markdown, id string, payload *model.ReportPayload, received time.Time) {
	md.H1("Bug Report: " + payload.Title)
	md.PlainText("")

	rows := [][]string{
		{"Report ID", "`" + id + "`"},
		{"Received", received.Format("2006-01-02 15:04:05 MST")},
	}
	if payload.ProjectID != "" {
		rows = append(rows, []string{"Project", payload.ProjectID})
	}
	if payload.Environment != "" {
		rows = append(rows, []string{"Environment", payload.Environment})
	}
	if payload.AppVersion != "" {
		rows = append(rows, []string{"App Version", payload.AppVersion})
	}
	rows = append(rows, []string{"Reporter", reporterText(payload.User)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// reporterText formats the reporter identity for the header table.
func reporterText(user *model.Reporter) string {
	if user == nil || user.Anonymous {
		return "Anonymous"
	}
	switch {
	case user.Name != "" && user.Email != "":
		return fmt.Sprintf("%s (%s)", user.Name, user.Email)
	case user.Name != "":
		return user.Name
	case user.Email != "":
		return user.Email
	default:
		return user.ID
	}
}

func writeSummaryBody(md *markdown.Markdown, payload *model.ReportPayload) {
	if payload.Description != "" {
		md.H2("Description")
		md.PlainText("")
		md.PlainText(payload.Description)
		md.PlainText("")
	}

	if len(payload.Steps) > 0 {
		md.H2("Steps to Reproduce")
		md.PlainText("")
		md.OrderedList(payload.Steps...)
		md.PlainText("")
	}

	if payload.ExpectedBehavior != "" || payload.ActualBehavior != "" {
		md.H2("Behavior")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Expected", "Actual"},
			Rows:   [][]string{{payload.ExpectedBehavior, payload.ActualBehavior}},
		})
		md.PlainText("")
	}
}

func writeSummaryAssets(md *markdown.Markdown, assets []model.AssetReference) {
	md.H2("Assets")
	md.PlainText("")
	if len(assets) == 0 {
		md.PlainText("No assets attached.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(assets))
	for _, asset := range assets {
		rows = append(rows, []string{
			string(asset.Type),
			fmt.Sprintf("[%s](%s)", asset.ID, asset.URL),
			asset.MimeType,
			strconv.FormatInt(asset.Size, 10),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Link", "Mime Type", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeSummaryDiagnostics(md *markdown.Markdown, payload *model.ReportPayload) {
	diag := payload.Diagnostics

	md.H2("Diagnostics")
	md.PlainText("")

	items := []string{
		"Console errors: " + strconv.Itoa(len(diag.Logs)),
		"Failed requests: " + strconv.Itoa(len(diag.Requests)),
	}
	if diag.Browser != "" {
		items = append(items, "Browser: "+diag.Browser)
	}
	if diag.OS != "" {
		items = append(items, "OS: "+diag.OS)
	}
	if diag.Viewport.Width > 0 {
		items = append(items, fmt.Sprintf("Viewport: %dx%d @%gx",
			diag.Viewport.Width, diag.Viewport.Height, diag.Viewport.PixelRatio))
	}
	md.BulletList(items...)
	md.PlainText("")

	if diag.URL != "" {
		md.PlainTextf("Page: %s", diag.URL)
		md.PlainText("")
	}
}
