package capture

import (
	"fmt"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// ValidateAssetSize rejects blobs larger than maxBytes. A zero or
// negative limit disables the check.
func ValidateAssetSize(blob model.Blob, assetType model.AssetType, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	if blob.Size() <= maxBytes {
		return nil
	}
	return model.NewError(model.CodeValidation,
		fmt.Sprintf("%s exceeds max size (%dMB)", assetLabel(assetType), mb(maxBytes)))
}

func assetLabel(t model.AssetType) string {
	switch t {
	case model.AssetScreenshot:
		return "screenshot"
	case model.AssetRecording:
		return "recording"
	default:
		return "attachment"
	}
}
