package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yukino-dev/bugsnap/internal/config"
	"github.com/yukino-dev/bugsnap/internal/model"
	"github.com/yukino-dev/bugsnap/internal/storage"
	"github.com/yukino-dev/bugsnap/internal/upload"
)

// stubProvider satisfies the provider contract without a backend.
type stubProvider struct {
	uploadErr error
}

func (p *stubProvider) PrepareUploads(_ context.Context, files []model.UploadFile) ([]model.UploadInstruction, error) {
	instructions := make([]model.UploadInstruction, 0, len(files))
	for _, file := range files {
		instructions = append(instructions, model.UploadInstruction{
			ID:        file.ID,
			Method:    model.MethodPost,
			UploadURL: "https://backend.example/api/assets",
			Type:      file.Type,
		})
	}
	return instructions, nil
}

func (p *stubProvider) Upload(_ context.Context, instruction model.UploadInstruction, blob model.Blob, onProgress storage.ProgressFunc) (model.AssetReference, error) {
	if p.uploadErr != nil {
		return model.AssetReference{}, p.uploadErr
	}
	if onProgress != nil {
		onProgress(1)
	}
	return model.AssetReference{
		ID:   instruction.ID,
		Type: instruction.Type,
		URL:  "https://cdn.example/" + instruction.ID,
		Size: blob.Size(),
	}, nil
}

func testConfig(endpoint string) config.Config {
	cfg := config.Config{
		APIEndpoint: endpoint,
		ProjectID:   "demo",
		AppVersion:  "1.2.3",
		Environment: "development",
		Storage: config.StorageConfig{
			Mode:  config.ModeProxy,
			Proxy: &config.ProxyConfig{UploadEndpoint: "https://backend.example/api/assets"},
		},
		Auth: config.AuthConfig{Headers: map[string]string{"Authorization": "Bearer t"}},
	}
	return cfg.WithDefaults()
}

func testInput() Input {
	return Input{
		Draft: model.ReportDraft{
			Title:            "Broken save button",
			Description:      "Clicking save does nothing",
			StepsToReproduce: "open editor\n\n  click save  \n",
			ExpectedBehavior: "document saves",
			ActualBehavior:   "nothing happens",
		},
		Diagnostics: model.DiagnosticsSnapshot{URL: "https://app.example/editor"},
		Assets: []model.CapturedAsset{
			{ID: "a1", Type: model.AssetScreenshot, Blob: model.Blob{Data: []byte("png"), MimeType: "image/png"}, Size: 3},
		},
	}
}

func newTestSubmitter(t *testing.T, cfg config.Config, opts ...Option) *Submitter {
	t.Helper()
	opts = append(opts,
		WithProvider(&stubProvider{}),
		WithIdentityResolver(NewIdentityResolver(WithIPEndpoints())),
		WithUploadOptions(upload.WithRetryBaseDelay(time.Millisecond)),
	)
	submitter, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("new submitter: %v", err)
	}
	return submitter
}

// TestSubmitterSubmit tests the end-to-end submission flow.
func TestSubmitterSubmit(t *testing.T) {
	t.Parallel()

	t.Run("posts the assembled payload", func(t *testing.T) {
		t.Parallel()

		var got model.ReportPayload
		var gotAuth, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "rep_1", "message": "stored"})
		}))
		defer server.Close()

		submitter := newTestSubmitter(t, testConfig(server.URL))
		response, err := submitter.Submit(context.Background(), testInput())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if response.ID != "rep_1" {
			t.Errorf("unexpected response id: %s", response.ID)
		}
		if gotAuth != "Bearer t" || gotContentType != "application/json" {
			t.Errorf("unexpected headers: auth=%s content-type=%s", gotAuth, gotContentType)
		}
		if got.Title != "Broken save button" {
			t.Errorf("unexpected title: %s", got.Title)
		}
		wantSteps := []string{"open editor", "click save"}
		if len(got.Steps) != len(wantSteps) {
			t.Fatalf("expected steps %v, got %v", wantSteps, got.Steps)
		}
		for i := range wantSteps {
			if got.Steps[i] != wantSteps[i] {
				t.Errorf("step %d: expected %q, got %q", i, wantSteps[i], got.Steps[i])
			}
		}
		if len(got.Assets) != 1 || got.Assets[0].URL != "https://cdn.example/a1" {
			t.Errorf("unexpected assets: %+v", got.Assets)
		}
		if got.ProjectID != "demo" || got.AppVersion != "1.2.3" {
			t.Errorf("unexpected metadata: %+v", got)
		}
		if got.User == nil || !got.User.Anonymous {
			t.Errorf("expected anonymous user, got %+v", got.User)
		}
	})

	t.Run("hook veto aborts before any network call", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()

		var errHookCalled bool
		submitter := newTestSubmitter(t, testConfig(server.URL), WithHooks(Hooks{
			BeforeSubmit: func(context.Context, *model.ReportPayload) (*model.ReportPayload, error) {
				return nil, nil
			},
			OnError: func(error) { errHookCalled = true },
		}))

		_, err := submitter.Submit(context.Background(), testInput())
		if !model.IsAborted(err) {
			t.Fatalf("expected aborted outcome, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no report POST, got %d", hits.Load())
		}
		if errHookCalled {
			t.Error("cancellation must not fire the error hook")
		}
	})

	t.Run("hook may transform the payload", func(t *testing.T) {
		t.Parallel()

		var got model.ReportPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(map[string]string{"id": "rep_2"})
		}))
		defer server.Close()

		submitter := newTestSubmitter(t, testConfig(server.URL), WithHooks(Hooks{
			BeforeSubmit: func(_ context.Context, payload *model.ReportPayload) (*model.ReportPayload, error) {
				payload.Title = "[triaged] " + payload.Title
				return payload, nil
			},
		}))

		if _, err := submitter.Submit(context.Background(), testInput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(got.Title, "[triaged] ") {
			t.Errorf("expected transformed title, got %s", got.Title)
		}
	})

	t.Run("non-success response carries status and body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte("missing title"))
		}))
		defer server.Close()

		var hookErr error
		submitter := newTestSubmitter(t, testConfig(server.URL), WithHooks(Hooks{
			OnError: func(err error) { hookErr = err },
		}))

		_, err := submitter.Submit(context.Background(), testInput())

		var taxonomyErr *model.Error
		if !errors.As(err, &taxonomyErr) || taxonomyErr.Code != model.CodeSubmit {
			t.Fatalf("expected submit error, got %v", err)
		}
		if taxonomyErr.Status != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", taxonomyErr.Status)
		}
		if !strings.Contains(taxonomyErr.Message, "missing title") {
			t.Errorf("expected response body in message, got %q", taxonomyErr.Message)
		}
		if hookErr == nil {
			t.Error("expected the error hook to fire")
		}
	})

	t.Run("empty error body yields just the status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		submitter := newTestSubmitter(t, testConfig(server.URL))

		_, err := submitter.Submit(context.Background(), testInput())

		var taxonomyErr *model.Error
		if !errors.As(err, &taxonomyErr) || taxonomyErr.Code != model.CodeSubmit {
			t.Fatalf("expected submit error, got %v", err)
		}
		if taxonomyErr.Message != "report submit failed (500)" {
			t.Errorf("expected bare status message, got %q", taxonomyErr.Message)
		}
	})

	t.Run("upload failure propagates through the error hook", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer server.Close()

		var hookErr error
		submitter, err := New(testConfig(server.URL),
			WithProvider(&stubProvider{uploadErr: model.NewError(model.CodeUpload, "backend unavailable")}),
			WithIdentityResolver(NewIdentityResolver(WithIPEndpoints())),
			WithUploadOptions(upload.WithRetryBaseDelay(time.Millisecond)),
			WithHooks(Hooks{OnError: func(e error) { hookErr = e }}),
		)
		if err != nil {
			t.Fatalf("new submitter: %v", err)
		}

		_, err = submitter.Submit(context.Background(), testInput())
		if model.CodeOf(err) != model.CodeUpload {
			t.Fatalf("expected upload error, got %v", err)
		}
		if model.CodeOf(hookErr) != model.CodeUpload {
			t.Errorf("expected upload error in hook, got %v", hookErr)
		}
	})

	t.Run("success fires the success hook", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "rep_3"})
		}))
		defer server.Close()

		var gotResponse model.ReportResponse
		submitter := newTestSubmitter(t, testConfig(server.URL), WithHooks(Hooks{
			OnSuccess: func(r model.ReportResponse) { gotResponse = r },
		}))

		if _, err := submitter.Submit(context.Background(), testInput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotResponse.ID != "rep_3" {
			t.Errorf("expected success hook response, got %+v", gotResponse)
		}
	})
}
