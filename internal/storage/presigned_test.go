package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// TestPresignedProviderPrepareUploads tests the presign round trip.
func TestPresignedProviderPrepareUploads(t *testing.T) {
	t.Parallel()

	t.Run("posts descriptors and returns instructions", func(t *testing.T) {
		t.Parallel()

		var gotBody struct {
			Files []model.UploadFile `json:"files"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode presign request: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"uploads": []model.UploadInstruction{
					{ID: "a1", Method: model.MethodPut, UploadURL: "https://bucket.example/a1", Key: "a1.png", Type: model.AssetScreenshot},
				},
			})
		}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: server.URL})
		files := []model.UploadFile{{ID: "a1", Name: "shot.png", Type: model.AssetScreenshot, MimeType: "image/png", Size: 9}}

		instructions, err := provider.PrepareUploads(context.Background(), files)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(gotBody.Files) != 1 || gotBody.Files[0].ID != "a1" {
			t.Errorf("unexpected presign request body: %+v", gotBody)
		}
		if len(instructions) != 1 || instructions[0].Key != "a1.png" {
			t.Errorf("unexpected instructions: %+v", instructions)
		}
	})

	t.Run("fails when no instructions come back", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"uploads": []model.UploadInstruction{}})
		}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: server.URL})
		_, err := provider.PrepareUploads(context.Background(), []model.UploadFile{{ID: "a1"}})
		if model.CodeOf(err) != model.CodeUpload {
			t.Fatalf("expected upload error, got %v", err)
		}
	})

	t.Run("fails with status on a non-success response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: server.URL})
		_, err := provider.PrepareUploads(context.Background(), []model.UploadFile{{ID: "a1"}})

		var taxonomyErr *model.Error
		if !errors.As(err, &taxonomyErr) || taxonomyErr.Status != http.StatusForbidden {
			t.Fatalf("expected upload error with status 403, got %v", err)
		}
	})
}

// TestPresignedProviderUpload tests both signed upload shapes.
func TestPresignedProviderUpload(t *testing.T) {
	t.Parallel()

	t.Run("puts the raw blob to a signed url", func(t *testing.T) {
		t.Parallel()

		var gotMethod string
		var gotBody []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotBody, _ = io.ReadAll(r.Body)
		}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: "unused"})
		instruction := model.UploadInstruction{
			ID:        "a1",
			Method:    model.MethodPut,
			UploadURL: server.URL,
			Key:       "a1.png",
			PublicURL: "https://cdn.example/a1.png",
			Type:      model.AssetScreenshot,
		}

		ref, err := provider.Upload(context.Background(), instruction, model.Blob{Data: []byte("png"), MimeType: "image/png"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodPut {
			t.Errorf("expected PUT, got %s", gotMethod)
		}
		if string(gotBody) != "png" {
			t.Errorf("unexpected body: %q", gotBody)
		}
		if ref.URL != "https://cdn.example/a1.png" {
			t.Errorf("expected instruction public url, got %s", ref.URL)
		}
	})

	t.Run("posts a form when fields are dictated", func(t *testing.T) {
		t.Parallel()

		var gotPolicy string
		var gotFile []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			gotPolicy = r.FormValue("policy")
			file, _, err := r.FormFile("file")
			if err != nil {
				t.Errorf("form file: %v", err)
			} else {
				gotFile, _ = io.ReadAll(file)
				file.Close()
			}
		}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: "unused", PublicBaseURL: "https://cdn.example"})
		instruction := model.UploadInstruction{
			ID:        "a1",
			Method:    model.MethodPost,
			UploadURL: server.URL,
			Fields:    map[string]string{"policy": "signed-policy"},
			Key:       "uploads/a1.png",
			Type:      model.AssetScreenshot,
		}

		ref, err := provider.Upload(context.Background(), instruction, model.Blob{Data: []byte("png")}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotPolicy != "signed-policy" {
			t.Errorf("expected dictated field, got %q", gotPolicy)
		}
		if string(gotFile) != "png" {
			t.Errorf("unexpected file content: %q", gotFile)
		}
		if ref.URL != "https://cdn.example/uploads/a1.png" {
			t.Errorf("expected derived url, got %s", ref.URL)
		}
	})

	t.Run("falls back to the upload url", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: "unused"})
		instruction := model.UploadInstruction{ID: "a1", Method: model.MethodPut, UploadURL: server.URL, Type: model.AssetScreenshot}

		ref, err := provider.Upload(context.Background(), instruction, model.Blob{Data: []byte("x")}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.URL != server.URL {
			t.Errorf("expected fallback to %s, got %s", server.URL, ref.URL)
		}
	})

	t.Run("fails with status on a rejected signed upload", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		provider := NewPresignedProvider(Options{Endpoint: "unused"})
		instruction := model.UploadInstruction{ID: "a1", Method: model.MethodPut, UploadURL: server.URL, Type: model.AssetScreenshot}
		_, err := provider.Upload(context.Background(), instruction, model.Blob{Data: []byte("x")}, nil)

		var taxonomyErr *model.Error
		if !errors.As(err, &taxonomyErr) || taxonomyErr.Status != http.StatusForbidden {
			t.Fatalf("expected upload error with status 403, got %v", err)
		}
	})
}

// TestNew tests the mode-to-provider mapping.
func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode    Mode
		wantErr bool
	}{
		{ModeProxy, false},
		{ModePresigned, false},
		{ModeLocal, false},
		{Mode("s3"), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			provider, err := New(tt.mode, Options{Endpoint: "https://backend.example"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider == nil {
				t.Fatal("expected a provider")
			}
		})
	}
}
