package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yukino-dev/bugsnap/internal/config"
	"github.com/yukino-dev/bugsnap/internal/model"
	"github.com/yukino-dev/bugsnap/internal/storage"
	"github.com/yukino-dev/bugsnap/internal/upload"
)

// Hooks are the caller's extensibility points around submission. All
// are optional.
type Hooks struct {
	// BeforeSubmit may transform the payload before the network call,
	// or veto the submission entirely by returning nil, which aborts
	// with an aborted outcome before any network call is made.
	BeforeSubmit func(ctx context.Context, payload *model.ReportPayload) (*model.ReportPayload, error)

	// OnSuccess fires after the backend acknowledges the report.
	OnSuccess func(response model.ReportResponse)

	// OnError fires for every failed submission except deliberate
	// cancellation, which is a quiet state reset, not a failure.
	OnError func(err error)
}

// Input is one submission request.
type Input struct {
	// Draft holds the user's free-text report fields.
	Draft model.ReportDraft

	// Diagnostics is the snapshot collected at submit time.
	Diagnostics model.DiagnosticsSnapshot

	// Assets are the captured evidence blobs, uploaded before the
	// report POST.
	Assets []model.CapturedAsset

	// OnUploadProgress receives aggregate upload progress.
	OnUploadProgress storage.ProgressFunc
}

// Submitter delivers bug reports to the configured backend. The zero
// value is not usable; construct with New.
type Submitter struct {
	cfg          config.Config
	client       *http.Client
	orchestrator *upload.Orchestrator
	identity     *IdentityResolver
	hooks        Hooks
	logger       *slog.Logger

	provider storage.Provider
	uploadOpts []upload.Option
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient sets the client for the report POST and provider
// requests. The caller picks a client whose cookie handling matches
// the configured credential policy.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) {
		s.client = client
	}
}

// WithHooks installs the caller's submission hooks.
func WithHooks(hooks Hooks) Option {
	return func(s *Submitter) {
		s.hooks = hooks
	}
}

// WithProvider overrides the storage provider derived from the
// configuration.
func WithProvider(provider storage.Provider) Option {
	return func(s *Submitter) {
		s.provider = provider
	}
}

// WithIdentityResolver overrides the reporter identity resolver.
func WithIdentityResolver(resolver *IdentityResolver) Option {
	return func(s *Submitter) {
		s.identity = resolver
	}
}

// WithUploadOptions passes extra options to the upload orchestrator.
func WithUploadOptions(opts ...upload.Option) Option {
	return func(s *Submitter) {
		s.uploadOpts = append(s.uploadOpts, opts...)
	}
}

// WithSubmitLogger sets a custom logger.
func WithSubmitLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// New creates a submitter for a normalized configuration. The storage
// provider is derived from the configuration unless overridden.
func New(cfg config.Config, opts ...Option) (*Submitter, error) {
	s := &Submitter{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.identity == nil {
		s.identity = NewIdentityResolver(WithIdentityClient(s.client))
	}

	if s.provider == nil {
		mode, provOpts, err := cfg.ProviderOptions()
		if err != nil {
			return nil, err
		}
		provOpts.Client = s.client
		provider, err := storage.New(mode, provOpts)
		if err != nil {
			return nil, err
		}
		s.provider = provider
	}

	uploadOpts := append([]upload.Option{upload.WithLogger(s.logger)}, s.uploadOpts...)
	s.orchestrator = upload.New(s.provider, uploadOpts...)
	return s, nil
}

// Submit uploads the assets, assembles the payload, runs the
// pre-submit hook, and POSTs the report. The response hooks fire
// before Submit returns.
func (s *Submitter) Submit(ctx context.Context, in Input) (model.ReportResponse, error) {
	response, err := s.submit(ctx, in)
	if err != nil {
		if !model.IsAborted(err) && s.hooks.OnError != nil {
			s.hooks.OnError(err)
		}
		return model.ReportResponse{}, err
	}
	if s.hooks.OnSuccess != nil {
		s.hooks.OnSuccess(response)
	}
	return response, nil
}

func (s *Submitter) submit(ctx context.Context, in Input) (model.ReportResponse, error) {
	refs, err := s.orchestrator.UploadAssets(ctx, in.Assets, in.OnUploadProgress)
	if err != nil {
		return model.ReportResponse{}, err
	}

	reporter := s.identity.Resolve(ctx, s.cfg.User)
	payload := &model.ReportPayload{
		Title:            in.Draft.Title,
		Description:      in.Draft.Description,
		Steps:            in.Draft.Steps(),
		ExpectedBehavior: in.Draft.ExpectedBehavior,
		ActualBehavior:   in.Draft.ActualBehavior,
		Diagnostics:      in.Diagnostics,
		Assets:           refs,
		ProjectID:        s.cfg.ProjectID,
		AppVersion:       s.cfg.AppVersion,
		Environment:      s.cfg.Environment,
		User:             &reporter,
	}

	if s.hooks.BeforeSubmit != nil {
		transformed, err := s.hooks.BeforeSubmit(ctx, payload)
		if err != nil {
			return model.ReportResponse{}, err
		}
		if transformed == nil {
			return model.ReportResponse{}, model.NewError(model.CodeAborted, "submission aborted by beforeSubmit hook")
		}
		payload = transformed
	}

	s.logger.Debug("submitting bug report",
		"endpoint", s.cfg.APIEndpoint,
		"assets", len(payload.Assets),
		"steps", len(payload.Steps))

	return s.post(ctx, payload)
}

// post delivers the payload and interprets the response.
func (s *Submitter) post(ctx context.Context, payload *model.ReportPayload) (model.ReportResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.ReportResponse{}, model.WrapError(model.CodeSubmit, "could not encode report payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return model.ReportResponse{}, model.WrapError(model.CodeSubmit, "could not build report request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Auth.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return model.ReportResponse{}, model.WrapError(model.CodeSubmit, "report submit failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("report submit failed (%d)", resp.StatusCode)
		if body := readBodyText(resp); body != "" {
			message += ": " + body
		}
		return model.ReportResponse{}, &model.Error{
			Code:    model.CodeSubmit,
			Message: message,
			Status:  resp.StatusCode,
		}
	}

	var response model.ReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return model.ReportResponse{}, model.WrapError(model.CodeSubmit, "report endpoint returned an unreadable response", err)
	}
	return response, nil
}

// readBodyText reads the error response body best-effort. Unreadable
// or empty bodies yield an empty string; the caller never sees text
// the server did not send.
func readBodyText(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
