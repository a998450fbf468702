package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// PresignedProvider asks a presign endpoint for per-asset upload
// targets, then uploads directly to them. Targets are either a direct
// PUT URL or a multipart POST with server-dictated form fields, the
// way S3 and compatible object stores hand out signed uploads.
type PresignedProvider struct {
	opts Options
}

// NewPresignedProvider creates a presigned provider whose presign
// endpoint is opts.Endpoint.
func NewPresignedProvider(opts Options) *PresignedProvider {
	return &PresignedProvider{opts: opts}
}

// PrepareUploads POSTs the file descriptors to the presign endpoint
// and returns the instructions it issues.
func (p *PresignedProvider) PrepareUploads(ctx context.Context, files []model.UploadFile) ([]model.UploadInstruction, error) {
	body, err := json.Marshal(map[string]any{"files": files})
	if err != nil {
		return nil, model.WrapError(model.CodeUpload, "could not encode presign request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, model.WrapError(model.CodeUpload, "could not build presign request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.opts.AuthHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.opts.client().Do(req)
	if err != nil {
		return nil, model.WrapError(model.CodeUpload, "failed to prepare uploads", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, uploadStatusError("failed to prepare uploads", resp.StatusCode)
	}

	var payload presignResponse
	if err := decodeJSON(resp.Body, "presign endpoint", &payload); err != nil {
		return nil, err
	}
	if len(payload.Uploads) == 0 {
		return nil, model.NewError(model.CodeUpload, "presign endpoint did not return upload instructions")
	}
	return payload.Uploads, nil
}

// Upload transfers the blob to the instruction's target. The public
// URL is the instruction's, or derived from the storage key and the
// configured public base URL.
func (p *PresignedProvider) Upload(ctx context.Context, instruction model.UploadInstruction, blob model.Blob, onProgress ProgressFunc) (model.AssetReference, error) {
	reportProgress(onProgress, 0)

	var err error
	if instruction.Method == model.MethodPost && len(instruction.Fields) > 0 {
		err = p.uploadForm(ctx, instruction, blob)
	} else {
		err = p.uploadDirect(ctx, instruction, blob)
	}
	if err != nil {
		return model.AssetReference{}, err
	}
	reportProgress(onProgress, 1)

	url := instruction.PublicURL
	if url == "" {
		if p.opts.PublicBaseURL != "" && instruction.Key != "" {
			url = joinURL(p.opts.PublicBaseURL, instruction.Key)
		} else {
			url = instruction.UploadURL
		}
	}

	return model.AssetReference{
		ID:       instruction.ID,
		Type:     instruction.Type,
		URL:      url,
		Key:      instruction.Key,
		MimeType: blob.MimeType,
		Size:     blob.Size(),
	}, nil
}

// uploadForm posts a multipart form with the server-dictated fields
// first and the file part last, as S3 POST policies require.
func (p *PresignedProvider) uploadForm(ctx context.Context, instruction model.UploadInstruction, blob model.Blob) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for key, value := range instruction.Fields {
		if err := form.WriteField(key, value); err != nil {
			return model.WrapError(model.CodeUpload, "could not build signed upload form", err)
		}
	}
	part, err := form.CreateFormFile("file", instruction.ID)
	if err == nil {
		_, err = part.Write(blob.Data)
	}
	if err == nil {
		err = form.Close()
	}
	if err != nil {
		return model.WrapError(model.CodeUpload, "could not build signed upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instruction.UploadURL, &body)
	if err != nil {
		return model.WrapError(model.CodeUpload, "could not build signed upload request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := p.opts.client().Do(req)
	if err != nil {
		return model.WrapError(model.CodeUpload, "signed form upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return uploadStatusError("signed form upload", resp.StatusCode)
	}
	return nil
}

// uploadDirect sends the raw blob with the instruction's method and
// headers, typically a signed PUT.
func (p *PresignedProvider) uploadDirect(ctx context.Context, instruction model.UploadInstruction, blob model.Blob) error {
	method := string(instruction.Method)
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, instruction.UploadURL, bytes.NewReader(blob.Data))
	if err != nil {
		return model.WrapError(model.CodeUpload, "could not build signed upload request", err)
	}
	if blob.MimeType != "" {
		req.Header.Set("Content-Type", blob.MimeType)
	}
	for k, v := range instruction.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.opts.client().Do(req)
	if err != nil {
		return model.WrapError(model.CodeUpload, "signed upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return uploadStatusError("signed upload", resp.StatusCode)
	}
	return nil
}
