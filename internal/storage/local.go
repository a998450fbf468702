package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// LocalProvider posts multipart forms to a development backend that
// stores assets on local disk and serves them back publicly.
type LocalProvider struct {
	opts Options
}

// NewLocalProvider creates a local provider for opts.Endpoint.
func NewLocalProvider(opts Options) *LocalProvider {
	return &LocalProvider{opts: opts}
}

// PrepareUploads issues one POST instruction per file, all pointing at
// the fixed endpoint.
func (p *LocalProvider) PrepareUploads(_ context.Context, files []model.UploadFile) ([]model.UploadInstruction, error) {
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

// Upload posts a multipart form with fields file, id and type. The
// public URL comes from the response, or is derived from the returned
// key and the configured public base URL.
func (p *LocalProvider) Upload(ctx context.Context, instruction model.UploadInstruction, blob model.Blob, onProgress ProgressFunc) (model.AssetReference, error) {
	reportProgress(onProgress, 0)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", instruction.ID)
	if err == nil {
		_, err = part.Write(blob.Data)
	}
	if err == nil {
		err = form.WriteField("id", instruction.ID)
	}
	if err == nil {
		err = form.WriteField("type", string(instruction.Type))
	}
	if err == nil {
		err = form.Close()
	}
	if err != nil {
		return model.AssetReference{}, model.WrapError(model.CodeUpload, "could not build multipart upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instruction.UploadURL, &body)
	if err != nil {
		return model.AssetReference{}, model.WrapError(model.CodeUpload, "could not build local upload request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	for k, v := range instruction.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.opts.client().Do(req)
	if err != nil {
		return model.AssetReference{}, model.WrapError(model.CodeUpload, "local upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.AssetReference{}, uploadStatusError("local upload", resp.StatusCode)
	}

	var payload uploadResponse
	if err := decodeJSON(resp.Body, "local upload", &payload); err != nil {
		return model.AssetReference{}, err
	}
	reportProgress(onProgress, 1)

	url := payload.URL
	if url == "" {
		if payload.Key != "" && p.opts.PublicBaseURL != "" {
			url = joinURL(p.opts.PublicBaseURL, payload.Key)
		} else {
			url = instruction.UploadURL
		}
	}

	return model.AssetReference{
		ID:       instruction.ID,
		Type:     instruction.Type,
		URL:      url,
		Key:      payload.Key,
		MimeType: blob.MimeType,
		Size:     blob.Size(),
	}, nil
}
