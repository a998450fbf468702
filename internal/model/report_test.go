package model

import (
	"reflect"
	"testing"
)

// TestReportDraftSteps tests step splitting from free text.
func TestReportDraftSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "splits lines and trims whitespace",
			input: "open the page\n  click submit  \nsee the error",
			want:  []string{"open the page", "click submit", "see the error"},
		},
		{
			name:  "drops blank lines",
			input: "first\n\n\n   \nsecond\n",
			want:  []string{"first", "second"},
		},
		{
			name:  "empty input yields no steps",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			draft := ReportDraft{StepsToReproduce: tt.input}
			if got := draft.Steps(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
		})
	}
}

// TestFileOf tests the transport projection of a captured asset.
func TestFileOf(t *testing.T) {
	t.Parallel()

	asset := CapturedAsset{
		ID:       "a1",
		Type:     AssetScreenshot,
		Blob:     Blob{Data: []byte("png-bytes"), MimeType: "image/png"},
		Filename: "screenshot.png",
		Size:     9,
	}

	file := FileOf(asset)
	want := UploadFile{ID: "a1", Name: "screenshot.png", Type: AssetScreenshot, MimeType: "image/png", Size: 9}
	if file != want {
		t.Errorf("got %+v, expected %+v", file, want)
	}
}

// TestNetworkRequestEntryFailed tests outcome classification.
func TestNetworkRequestEntryFailed(t *testing.T) {
	t.Parallel()

	ok := true
	notOK := false

	tests := []struct {
		name  string
		entry NetworkRequestEntry
		want  bool
	}{
		{"successful response", NetworkRequestEntry{Status: 200, OK: &ok}, false},
		{"client error response", NetworkRequestEntry{Status: 400, OK: &notOK}, true},
		{"connection-level failure", NetworkRequestEntry{Error: "dial tcp: refused"}, true},
		{"no outcome recorded", NetworkRequestEntry{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.entry.Failed(); got != tt.want {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
		})
	}
}
