package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jacerider/neo-image/internal/llm"
	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/render"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/style"
)

// previewSize bounds the image sent to detectors. Vision models downscale
// large inputs anyway; sending less keeps requests small and cheap.
const previewSize = 768

// detectable are the media types both vision APIs accept.
var detectable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// FocalDetector resolves the focal point of a source image:
//  1. a stored point (manual or previously detected) wins
//  2. otherwise LLM clients are asked in configured order, first success wins
//  3. otherwise the image centre is used
//
// Detected points are stored so each source is only analysed once. Every
// LLM call is recorded for cost tracking and rate limited (~10 calls/minute
// by default).
type FocalDetector struct {
	clients  []llm.Client // Ordered list: first is primary, rest are fallbacks
	limiter  *rate.Limiter
	points   storage.FocalPointRepository
	calls    storage.DetectionCallRepository
	renderer render.Renderer
	logger   *zap.Logger
}

// NewFocalDetector creates a detector. With no clients it only serves
// stored points and the centre fallback. ratePerMinute <= 0 disables rate
// limiting. renderer shrinks images before they are sent out.
func NewFocalDetector(
	clients []llm.Client,
	ratePerMinute int,
	points storage.FocalPointRepository,
	calls storage.DetectionCallRepository,
	renderer render.Renderer,
	logger *zap.Logger,
) *FocalDetector {
	limit := rate.Inf
	if ratePerMinute > 0 {
		// rate.Every returns a rate.Limit from a time interval between events.
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
	}
	return &FocalDetector{
		clients:  clients,
		limiter:  rate.NewLimiter(limit, 1), // burst of 1: strict rate limiting
		points:   points,
		calls:    calls,
		renderer: renderer,
		logger:   logger,
	}
}

// Enabled reports whether any detector client is configured.
func (d *FocalDetector) Enabled() bool {
	return len(d.clients) > 0
}

// Resolve returns the focal point for uri. It never fails: every problem
// degrades to the centre, which is what a crop without a focal point does.
func (d *FocalDetector) Resolve(ctx context.Context, uri string, image []byte) model.FocalPoint {
	fp, err := d.points.GetByURI(ctx, uri)
	if err == nil {
		return fp.Clamp()
	}
	if !errors.Is(err, storage.ErrNotFound) {
		d.logger.Error("Failed to load focal point", zap.String("uri", uri), zap.Error(err))
	}

	if !d.Enabled() {
		return model.CenterFocalPoint(uri)
	}

	detected, err := d.Detect(ctx, uri, image)
	if err != nil {
		d.logger.Warn("Focal point detection failed, using centre",
			zap.String("uri", uri),
			zap.Error(err),
		)
		return model.CenterFocalPoint(uri)
	}

	if err := d.points.Upsert(ctx, &detected); err != nil {
		d.logger.Error("Failed to store focal point", zap.String("uri", uri), zap.Error(err))
	}
	return detected
}

// Detect asks the LLM clients for a focal point without consulting or
// updating stored points.
func (d *FocalDetector) Detect(ctx context.Context, uri string, image []byte) (model.FocalPoint, error) {
	if !d.Enabled() {
		return model.FocalPoint{}, fmt.Errorf("no focal point detectors configured")
	}

	preview, mediaType, err := d.preview(ctx, image)
	if err != nil {
		return model.FocalPoint{}, err
	}

	var lastErr error
	for i, client := range d.clients {
		// Rate limit: blocks until a token is available or ctx is cancelled.
		if err := d.limiter.Wait(ctx); err != nil {
			return model.FocalPoint{}, fmt.Errorf("rate limit wait: %w", err)
		}

		res, err := d.tryClient(ctx, client, uri, preview, mediaType)
		if err == nil {
			d.logger.Info("Detected focal point",
				zap.String("uri", uri),
				zap.String("provider", client.ProviderName()),
				zap.Float64("x", res.X),
				zap.Float64("y", res.Y),
				zap.String("subject", res.Subject),
			)
			return model.FocalPoint{URI: uri, X: res.X, Y: res.Y, Source: model.FocalSourceDetected}, nil
		}
		lastErr = err

		if i < len(d.clients)-1 {
			d.logger.Warn("Focal point provider failed, trying next",
				zap.String("uri", uri),
				zap.String("provider", client.ProviderName()),
				zap.Error(err),
			)
		}
	}
	return model.FocalPoint{}, fmt.Errorf("all focal point providers failed for %s: %w", uri, lastErr)
}

func (d *FocalDetector) tryClient(ctx context.Context, client llm.Client, uri string, image []byte, mediaType string) (*llm.FocalPointResult, error) {
	if client == nil {
		return nil, fmt.Errorf("focal point client not configured")
	}

	start := time.Now()
	res, err := client.FindFocalPoint(ctx, image, mediaType)
	duration := time.Since(start).Milliseconds()

	d.recordCall(ctx, client, uri, err, duration)
	return res, err
}

func (d *FocalDetector) recordCall(ctx context.Context, client llm.Client, uri string, callErr error, durationMs int64) {
	call := &model.DetectionCall{
		URI:        uri,
		Provider:   client.ProviderName(),
		Model:      client.ModelName(),
		Success:    callErr == nil,
		DurationMs: &durationMs,
	}
	if err := d.calls.Create(ctx, call); err != nil {
		d.logger.Error("Failed to record detection call", zap.Error(err))
	}
}

// preview scales image to fit previewSize x previewSize.
func (d *FocalDetector) preview(ctx context.Context, image []byte) ([]byte, string, error) {
	s := style.New()
	if err := s.Scale(previewSize, previewSize); err != nil {
		return nil, "", err
	}
	res, err := d.renderer.Render(ctx, image, s, model.FocalPoint{})
	if err != nil {
		return nil, "", fmt.Errorf("building preview: %w", err)
	}
	if !detectable[res.ContentType] {
		return nil, "", fmt.Errorf("preview type %s is not accepted by vision models", res.ContentType)
	}
	return res.Data, res.ContentType, nil
}
