package model

// AssetType identifies the kind of evidence an asset carries.
type AssetType string

// Asset kinds accepted by every storage backend.
const (
	// AssetScreenshot is a still image captured from the host page.
	AssetScreenshot AssetType = "screenshot"

	// AssetRecording is a bounded screen recording.
	AssetRecording AssetType = "recording"

	// AssetAttachment is a caller-supplied file attached to the report.
	AssetAttachment AssetType = "attachment"
)

// Blob is a binary payload together with its media type.
//
// Design decision: We carry bytes rather than an io.Reader because
// captured assets are bounded by configuration (byte budgets are
// enforced during capture), are retried on upload, and need their size
// known up front for the transport projection.
type Blob struct {
	// Data is the raw payload.
	Data []byte

	// MimeType is the payload media type (e.g. "image/png").
	MimeType string
}

// Size returns the payload length in bytes.
func (b Blob) Size() int64 {
	return int64(len(b.Data))
}

// CapturedAsset is evidence produced by a capture engine. It is owned
// by the caller's in-memory state until submit or discard.
type CapturedAsset struct {
	// ID uniquely identifies the asset within one reporting session.
	ID string

	// Type is the asset kind.
	Type AssetType

	// Blob is the binary payload.
	Blob Blob

	// PreviewURL is a caller-visible handle for previewing the asset
	// before submit. Revoked by the caller when the asset is replaced
	// or the flow resets.
	PreviewURL string

	// Filename is the suggested name for the stored object.
	Filename string

	// Size is the payload length in bytes.
	Size int64
}

// UploadFile is the transport-facing projection of a CapturedAsset.
// It carries no binary payload and is what providers receive when
// asked for upload instructions.
type UploadFile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     AssetType `json:"type"`
	MimeType string    `json:"mimeType"`
	Size     int64     `json:"size"`
}

// FileOf projects a captured asset to its transport descriptor.
func FileOf(asset CapturedAsset) UploadFile {
	return UploadFile{
		ID:       asset.ID,
		Name:     asset.Filename,
		Type:     asset.Type,
		MimeType: asset.Blob.MimeType,
		Size:     asset.Size,
	}
}

// UploadMethod is the HTTP method an instruction directs the client to use.
type UploadMethod string

// Upload methods providers may issue.
const (
	// MethodPut uploads the raw blob with an HTTP PUT.
	MethodPut UploadMethod = "PUT"

	// MethodPost uploads via HTTP POST, optionally as a multipart form
	// when the instruction carries form fields.
	MethodPost UploadMethod = "POST"
)

// UploadInstruction is the provider-issued, per-asset directive
// describing how and where to upload. It is opaque to the orchestrator
// beyond the ID used to match it back to its asset.
//
// Invariant: every asset submitted for upload must have exactly one
// instruction with the same ID; absence is a hard upload error.
type UploadInstruction struct {
	ID        string            `json:"id"`
	Method    UploadMethod      `json:"method"`
	UploadURL string            `json:"uploadUrl"`
	Headers   map[string]string `json:"headers,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Key       string            `json:"key,omitempty"`
	PublicURL string            `json:"publicUrl,omitempty"`
	Type      AssetType         `json:"type"`
}

// AssetReference is the durable post-upload handle embedded in the
// final report payload.
type AssetReference struct {
	ID       string    `json:"id"`
	Type     AssetType `json:"type"`
	URL      string    `json:"url"`
	Key      string    `json:"key,omitempty"`
	MimeType string    `json:"mimeType,omitempty"`
	Size     int64     `json:"size,omitempty"`
}
