package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/yukino-dev/bugsnap/internal/storage"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "bugsnap"

	// DefaultMaxVideoSeconds is the default recording duration cap.
	// It doubles as a hard ceiling: configurations asking for more are
	// clamped back down, keeping recordings small enough to upload
	// through typical request-size limits.
	DefaultMaxVideoSeconds = 21

	// DefaultMaxVideoBytes caps the recording payload at 50MB, roughly
	// what 21 seconds of VP9 screen capture needs with headroom.
	DefaultMaxVideoBytes = 50 * 1024 * 1024

	// DefaultMaxScreenshotBytes caps the screenshot payload at 10MB,
	// generous for a PNG of a single display.
	DefaultMaxScreenshotBytes = 10 * 1024 * 1024

	// DefaultConsoleBufferSize is the console ring-buffer capacity.
	DefaultConsoleBufferSize = 50

	// DefaultRequestBufferSize is the network ring-buffer capacity.
	DefaultRequestBufferSize = 50

	// DefaultIPLookupTimeout bounds the best-effort public IP lookup.
	// Identity resolution must never hold up a submission noticeably.
	DefaultIPLookupTimeout = 1800 * time.Millisecond
)

// StorageMode selects which upload backend the reporter uses. The
// values match the configuration format of the receiving backends.
type StorageMode string

// Supported storage modes.
const (
	ModeS3Presigned StorageMode = "s3-presigned"
	ModeLocalPublic StorageMode = "local-public"
	ModeProxy       StorageMode = "proxy"
)

// S3Config configures the presigned-URL backend.
type S3Config struct {
	// PresignEndpoint issues per-asset upload instructions.
	PresignEndpoint string `yaml:"presignEndpoint"`

	// PublicBaseURL derives public asset URLs from storage keys when
	// an instruction carries no public URL.
	PublicBaseURL string `yaml:"publicBaseUrl,omitempty"`
}

// LocalConfig configures the local-multipart development backend.
type LocalConfig struct {
	// UploadEndpoint receives the multipart upload forms.
	UploadEndpoint string `yaml:"uploadEndpoint"`

	// PublicBaseURL derives public asset URLs from returned keys.
	PublicBaseURL string `yaml:"publicBaseUrl,omitempty"`
}

// ProxyConfig configures the direct-proxy backend.
type ProxyConfig struct {
	// UploadEndpoint receives the raw asset bodies.
	UploadEndpoint string `yaml:"uploadEndpoint"`
}

// StorageLimits bounds the captured asset sizes. Zero values are
// filled by WithDefaults.
type StorageLimits struct {
	// MaxVideoSeconds is the recording duration cap in seconds.
	// Clamped to DefaultMaxVideoSeconds.
	MaxVideoSeconds int `yaml:"maxVideoSeconds,omitempty"`

	// MaxVideoBytes is the recording byte budget.
	MaxVideoBytes int64 `yaml:"maxVideoBytes,omitempty"`

	// MaxScreenshotBytes is the screenshot byte budget.
	MaxScreenshotBytes int64 `yaml:"maxScreenshotBytes,omitempty"`
}

// StorageConfig selects and parameterizes the upload backend.
type StorageConfig struct {
	Mode   StorageMode   `yaml:"mode"`
	S3     *S3Config     `yaml:"s3,omitempty"`
	Local  *LocalConfig  `yaml:"local,omitempty"`
	Proxy  *ProxyConfig  `yaml:"proxy,omitempty"`
	Limits StorageLimits `yaml:"limits,omitempty"`
}

// AuthConfig is attached to every backend-bound request.
type AuthConfig struct {
	// Headers are sent verbatim with uploads and the report POST.
	Headers map[string]string `yaml:"headers,omitempty"`

	// WithCredentials includes ambient credentials (cookies) on
	// backend requests instead of the same-origin-only default.
	WithCredentials bool `yaml:"withCredentials,omitempty"`
}

// UserConfig identifies the reporting user when the host application
// knows who they are. All fields optional.
type UserConfig struct {
	ID    string `yaml:"id,omitempty"`
	Email string `yaml:"email,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Role  string `yaml:"role,omitempty"`
}

// PrivacyConfig controls what the screenshot engine obscures.
type PrivacyConfig struct {
	// MaskSelectors lists elements to blur before sampling.
	MaskSelectors []string `yaml:"maskSelectors,omitempty"`

	// RedactTextPatterns lists regular expressions whose matches are
	// replaced in page text before sampling. Invalid patterns are
	// treated as literal substrings.
	RedactTextPatterns []string `yaml:"redactTextPatterns,omitempty"`

	// AllowLocationMetadata lets attachments with GPS metadata through
	// the privacy scan.
	AllowLocationMetadata bool `yaml:"allowLocationMetadata,omitempty"`
}

// DiagnosticsConfig sizes the always-on ring buffers. Zero values are
// filled by WithDefaults.
type DiagnosticsConfig struct {
	ConsoleBufferSize int `yaml:"consoleBufferSize,omitempty"`
	RequestBufferSize int `yaml:"requestBufferSize,omitempty"`
}

// FeatureFlags toggles capture features. Nil pointers mean enabled;
// pointers let a configuration file switch a feature off explicitly.
type FeatureFlags struct {
	Screenshot  *bool `yaml:"screenshot,omitempty"`
	Recording   *bool `yaml:"recording,omitempty"`
	Annotations *bool `yaml:"annotations,omitempty"`
	ConsoleLogs *bool `yaml:"consoleLogs,omitempty"`
	NetworkInfo *bool `yaml:"networkInfo,omitempty"`

	// RecordingEntireScreenOnly requires the user to share the whole
	// monitor when recording. Off by default.
	RecordingEntireScreenOnly bool `yaml:"recordingEntireScreenOnly,omitempty"`
}

// ScreenshotEnabled reports whether screenshot capture is on.
func (f FeatureFlags) ScreenshotEnabled() bool { return f.Screenshot == nil || *f.Screenshot }

// RecordingEnabled reports whether screen recording is on.
func (f FeatureFlags) RecordingEnabled() bool { return f.Recording == nil || *f.Recording }

// AnnotationsEnabled reports whether screenshot annotation is on.
func (f FeatureFlags) AnnotationsEnabled() bool { return f.Annotations == nil || *f.Annotations }

// ConsoleLogsEnabled reports whether console capture is on.
func (f FeatureFlags) ConsoleLogsEnabled() bool { return f.ConsoleLogs == nil || *f.ConsoleLogs }

// NetworkInfoEnabled reports whether network capture is on.
func (f FeatureFlags) NetworkInfoEnabled() bool { return f.NetworkInfo == nil || *f.NetworkInfo }

// Config holds the full reporter configuration.
//
// Design decision: The nested shape mirrors the configuration format
// the receiving backends document, so one YAML file can configure both
// sides. Only Validate-checked fields are required; WithDefaults fills
// the rest.
type Config struct {
	// APIEndpoint receives the final report POST.
	APIEndpoint string `yaml:"apiEndpoint"`

	// ProjectID tags reports and diagnostics with the owning project.
	ProjectID string `yaml:"projectId,omitempty"`

	// AppVersion tags reports with the host application version.
	AppVersion string `yaml:"appVersion,omitempty"`

	// Environment is development, staging, or production.
	Environment string `yaml:"environment,omitempty"`

	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth,omitempty"`
	User        *UserConfig       `yaml:"user,omitempty"`
	Privacy     PrivacyConfig     `yaml:"privacy,omitempty"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty"`
	Features    FeatureFlags      `yaml:"features,omitempty"`
}

// WithDefaults returns a copy with every omitted value filled in and
// the recording duration clamped to its hard cap. The pipeline
// packages never default internally; callers normalize once here.
func (c Config) WithDefaults() Config {
	limits := &c.Storage.Limits
	if limits.MaxVideoSeconds <= 0 || limits.MaxVideoSeconds > DefaultMaxVideoSeconds {
		limits.MaxVideoSeconds = DefaultMaxVideoSeconds
	}
	if limits.MaxVideoBytes <= 0 {
		limits.MaxVideoBytes = DefaultMaxVideoBytes
	}
	if limits.MaxScreenshotBytes <= 0 {
		limits.MaxScreenshotBytes = DefaultMaxScreenshotBytes
	}

	if c.Diagnostics.ConsoleBufferSize <= 0 {
		c.Diagnostics.ConsoleBufferSize = DefaultConsoleBufferSize
	}
	if c.Diagnostics.RequestBufferSize <= 0 {
		c.Diagnostics.RequestBufferSize = DefaultRequestBufferSize
	}

	if c.Auth.Headers == nil {
		c.Auth.Headers = map[string]string{}
	}
	return c
}

// Validate checks the configuration, returning the first problem
// found. Called once after loading, before any capture begins.
func (c *Config) Validate() error {
	if c.APIEndpoint == "" {
		return ErrNoAPIEndpoint
	}

	switch c.Storage.Mode {
	case ModeS3Presigned:
		if c.Storage.S3 == nil || c.Storage.S3.PresignEndpoint == "" {
			return ErrNoPresignEndpoint
		}
	case ModeLocalPublic:
		if c.Storage.Local == nil || c.Storage.Local.UploadEndpoint == "" {
			return ErrNoUploadEndpoint
		}
	case ModeProxy:
		if c.Storage.Proxy == nil || c.Storage.Proxy.UploadEndpoint == "" {
			return ErrNoUploadEndpoint
		}
	case "":
		return ErrNoStorageMode
	default:
		return ErrUnknownStorageMode
	}

	if c.Diagnostics.ConsoleBufferSize < 0 || c.Diagnostics.RequestBufferSize < 0 {
		return ErrInvalidBufferSize
	}
	limits := c.Storage.Limits
	if limits.MaxVideoSeconds < 0 || limits.MaxVideoBytes < 0 || limits.MaxScreenshotBytes < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// ProviderOptions maps the configured storage mode to the provider
// factory's mode and options. Auth headers ride along; the credential
// policy is applied by the HTTP client the caller passes in.
func (c *Config) ProviderOptions() (storage.Mode, storage.Options, error) {
	opts := storage.Options{AuthHeaders: c.Auth.Headers}
	switch c.Storage.Mode {
	case ModeS3Presigned:
		if c.Storage.S3 == nil {
			return "", storage.Options{}, ErrNoPresignEndpoint
		}
		opts.Endpoint = c.Storage.S3.PresignEndpoint
		opts.PublicBaseURL = c.Storage.S3.PublicBaseURL
		return storage.ModePresigned, opts, nil
	case ModeLocalPublic:
		if c.Storage.Local == nil {
			return "", storage.Options{}, ErrNoUploadEndpoint
		}
		opts.Endpoint = c.Storage.Local.UploadEndpoint
		opts.PublicBaseURL = c.Storage.Local.PublicBaseURL
		return storage.ModeLocal, opts, nil
	case ModeProxy:
		if c.Storage.Proxy == nil {
			return "", storage.Options{}, ErrNoUploadEndpoint
		}
		opts.Endpoint = c.Storage.Proxy.UploadEndpoint
		return storage.ModeProxy, opts, nil
	default:
		return "", storage.Options{}, ErrUnknownStorageMode
	}
}

// XDGDataDir returns the XDG data directory for bugsnap.
// On Linux: ~/.local/share/bugsnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for bugsnap.
// On Linux: ~/.config/bugsnap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
