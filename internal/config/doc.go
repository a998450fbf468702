// Package config provides the reporter configuration: storage backend
// selection, upload limits, auth policy, privacy masking, diagnostics
// buffer sizing, and the normalization that fills every omitted value
// with a documented default. The capture and submit packages never
// default internally; they require a normalized configuration.
package config
