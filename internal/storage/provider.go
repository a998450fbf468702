package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// ProgressFunc receives upload progress as a fraction in [0, 1].
// Providers call it at least at start (0) and completion (1).
type ProgressFunc func(fraction float64)

// Provider is the capability contract every storage backend satisfies.
//
// PrepareUploads is called once per batch with asset descriptors (no
// binary data) and returns one instruction per asset. Matching
// instructions back to assets by id is the orchestrator's job, not the
// provider's.
//
// Upload performs one transfer. Non-success responses fail with an
// upload error carrying the HTTP status where applicable.
type Provider interface {
	PrepareUploads(ctx context.Context, files []model.UploadFile) ([]model.UploadInstruction, error)
	Upload(ctx context.Context, instruction model.UploadInstruction, blob model.Blob, onProgress ProgressFunc) (model.AssetReference, error)
}

// Options is the shared provider configuration.
type Options struct {
	// Endpoint is the provider's primary URL: the upload endpoint for
	// the proxy and local providers, the presign endpoint for the
	// presigned provider.
	Endpoint string

	// AuthHeaders are attached to every provider-originated request.
	AuthHeaders map[string]string

	// PublicBaseURL, when set, derives a public asset URL from a
	// storage key when the backend does not supply one directly.
	PublicBaseURL string

	// Client performs the HTTP requests. The caller chooses a client
	// whose cookie handling matches the configured credential policy.
	// Nil means http.DefaultClient.
	Client *http.Client
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

// uploadResponse is the JSON body the proxy and local backends return.
type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

// presignResponse is the JSON body of the presign endpoint.
type presignResponse struct {
	Uploads []model.UploadInstruction `json:"uploads"`
}

// uploadStatusError builds the taxonomy error for a non-success
// upload response.
func uploadStatusError(what string, status int) error {
	return &model.Error{
		Code:    model.CodeUpload,
		Message: fmt.Sprintf("%s failed (%d)", what, status),
		Status:  status,
	}
}

// decodeJSON decodes an upload response body, folding decode failures
// into the upload taxonomy.
func decodeJSON(body io.Reader, what string, out any) error {
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return model.WrapError(model.CodeUpload, what+" returned an unreadable response", err)
	}
	return nil
}

// joinURL joins a base URL and a storage key with exactly one slash.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// reportProgress calls onProgress when set.
func reportProgress(onProgress ProgressFunc, fraction float64) {
	if onProgress != nil {
		onProgress(fraction)
	}
}
