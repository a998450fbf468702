package storage

import (
	"bytes"
	"context"
	"net/http"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// Asset identification headers on proxy uploads.
const (
	headerAssetID   = "x-bug-reporter-asset-id"
	headerAssetType = "x-bug-reporter-asset-type"
)

// ProxyProvider streams raw blobs to one fixed backend endpoint. The
// backend identifies each asset from the request headers and answers
// with the stored object's public URL.
type ProxyProvider struct {
	opts Options
}

// NewProxyProvider creates a proxy provider for opts.Endpoint.
func NewProxyProvider(opts Options) *ProxyProvider {
	return &ProxyProvider{opts: opts}
}

// PrepareUploads issues one POST instruction per file, all pointing at
// the fixed endpoint. No network round trip is needed.
func (p *ProxyProvider) PrepareUploads(_ context.Context, files []model.UploadFile) ([]model.UploadInstruction, error) {
	instructions := make([]model.UploadInstruction, 0, len(files))
	for _, file := range files {
		instructions = append(instructions, model.UploadInstruction{
			ID:        file.ID,
			Method:    model.MethodPost,
			UploadURL: p.opts.Endpoint,
			Headers:   p.opts.AuthHeaders,
			Type:      file.Type,
		})
	}
	return instructions, nil
}

// Upload POSTs the raw blob with header-based asset identification.
func (p *ProxyProvider) Upload(ctx context.Context, instruction model.UploadInstruction, blob model.Blob, onProgress ProgressFunc) (model.AssetReference, error) {
	reportProgress(onProgress, 0)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instruction.UploadURL, bytes.NewReader(blob.Data))
	if err != nil {
		return model.AssetReference{}, model.WrapError(model.CodeUpload, "could not build proxy upload request", err)
	}
	contentType := blob.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(headerAssetID, instruction.ID)
	req.Header.Set(headerAssetType, string(instruction.Type))
	for k, v := range instruction.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.opts.client().Do(req)
	if err != nil {
		return model.AssetReference{}, model.WrapError(model.CodeUpload, "proxy upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.AssetReference{}, uploadStatusError("proxy upload", resp.StatusCode)
	}

	var payload uploadResponse
	if err := decodeJSON(resp.Body, "proxy upload", &payload); err != nil {
		return model.AssetReference{}, err
	}
	reportProgress(onProgress, 1)

	return model.AssetReference{
		ID:       instruction.ID,
		Type:     instruction.Type,
		URL:      payload.URL,
		Key:      payload.Key,
		MimeType: blob.MimeType,
		Size:     blob.Size(),
	}, nil
}
