package capture

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// ExifFinding is one privacy-relevant metadata tag found in an
// attachment.
type ExifFinding struct {
	// Kind classifies the disclosure: "gps", "serial", "author" or
	// "device".
	Kind string

	// Tag is the EXIF tag name.
	Tag string

	// Value is the formatted tag value.
	Value string
}

// ScanOptions controls which findings fail validation.
type ScanOptions struct {
	// AllowLocation lets GPS-bearing attachments through instead of
	// failing validation.
	AllowLocation bool
}

// ScanAttachment inspects a JPEG or TIFF attachment for EXIF metadata
// that discloses the reporter's location or device identity. Images
// without EXIF data pass cleanly. A GPS tag fails validation unless
// opts.AllowLocation is set; other findings are returned for the
// caller to surface but do not block the upload.
func ScanAttachment(blob model.Blob, opts ScanOptions) ([]ExifFinding, error) {
	if !strings.HasPrefix(blob.MimeType, "image/") {
		return nil, nil
	}

	rawExif, err := exif.SearchAndExtractExif(blob.Data)
	if err != nil || rawExif == nil {
		return nil, nil
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, nil
	}

	var findings []ExifFinding
	for _, entry := range entries {
		if kind, ok := classifyTag(entry.TagName); ok {
			findings = append(findings, ExifFinding{
				Kind:  kind,
				Tag:   entry.TagName,
				Value: entry.Formatted,
			})
		}
	}

	if !opts.AllowLocation {
		for _, f := range findings {
			if f.Kind == "gps" {
				return findings, model.NewError(model.CodeValidation,
					"attachment contains GPS location metadata")
			}
		}
	}
	return findings, nil
}

// classifyTag maps an EXIF tag name to a finding kind.
func classifyTag(tagName string) (string, bool) {
	switch tagName {
	case "GPSLatitude", "GPSLongitude", "GPSLatitudeRef", "GPSLongitudeRef":
		return "gps", true
	case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
		return "serial", true
	case "Artist", "Author", "Copyright", "XPAuthor":
		return "author", true
	case "Make", "Model":
		return "device", true
	}
	return "", false
}
