package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
	"github.com/yukino-dev/bugsnap/internal/storage"
)

// Orchestrator uploads batches of captured assets through a storage
// provider. The zero value is not usable; construct with New.
type Orchestrator struct {
	provider  storage.Provider
	retries   int
	baseDelay time.Duration
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetries overrides the number of additional attempts per asset.
func WithRetries(retries int) Option {
	return func(o *Orchestrator) {
		o.retries = retries
	}
}

// WithRetryBaseDelay overrides the linear-backoff base delay. Tests
// use a short value.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.baseDelay = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator over the given provider.
func New(provider storage.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		retries:   DefaultRetries,
		baseDelay: DefaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// UploadAssets uploads the assets in order and returns their
// references in the same order.
//
// Instructions are prepared once for the whole batch and matched back
// by id; an asset with no matching instruction fails the whole
// operation before any transfer starts. Exhausting retries on one
// asset aborts the remaining batch.
//
// onProgress receives the aggregate fraction across the batch: each
// asset's inner progress is blended into
// (completed + inner) / total, and a discrete (completed / total)
// tick fires after each asset finishes.
func (o *Orchestrator) UploadAssets(ctx context.Context, assets []model.CapturedAsset, onProgress storage.ProgressFunc) ([]model.AssetReference, error) {
	files := make([]model.UploadFile, 0, len(assets))
	for _, asset := range assets {
		files = append(files, model.FileOf(asset))
	}

	instructions, err := o.provider.PrepareUploads(ctx, files)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.UploadInstruction, len(instructions))
	for _, instruction := range instructions {
		byID[instruction.ID] = instruction
	}
	for _, asset := range assets {
		if _, ok := byID[asset.ID]; !ok {
			return nil, model.NewError(model.CodeUpload,
				fmt.Sprintf("no upload instruction for asset %s", asset.ID))
		}
	}

	total := float64(len(assets))
	refs := make([]model.AssetReference, 0, len(assets))
	completed := 0

	for _, asset := range assets {
		instruction := byID[asset.ID]

		ref, err := withRetry(func() (model.AssetReference, error) {
			return o.provider.Upload(ctx, instruction, asset.Blob, func(inner float64) {
				if onProgress != nil {
					onProgress((float64(completed) + inner) / total)
				}
			})
		}, o.retries, o.baseDelay)
		if err != nil {
			o.logger.Warn("asset upload failed",
				"asset", asset.ID,
				"attempts", o.retries+1,
				"error", err)
			return nil, err
		}

		refs = append(refs, ref)
		completed++
		if onProgress != nil {
			onProgress(float64(completed) / total)
		}
	}
	return refs, nil
}
