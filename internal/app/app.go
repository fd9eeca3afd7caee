// Package app builds the component graph both binaries share: database,
// derivative backend, sources, renderer, focal detector and the derivative
// service.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/config"
	"github.com/jacerider/neo-image/internal/llm"
	"github.com/jacerider/neo-image/internal/provider"
	"github.com/jacerider/neo-image/internal/render"
	"github.com/jacerider/neo-image/internal/service"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/telemetry"
)

// App holds every built component. Fields are exported so the binaries can
// pick what they need.
type App struct {
	Config      *config.Config
	DB          *sqlx.DB
	Backend     storage.Backend
	Registry    *storage.Registry
	Derivatives storage.DerivativeRepository
	FocalPoints storage.FocalPointRepository
	Calls       storage.DetectionCallRepository
	Sources     *provider.Sources
	Focal       *provider.FocalDetector
	Renderer    render.Renderer
	Metrics     *telemetry.Metrics
	Service     *service.DerivativeService
}

// New builds the component graph from cfg. metrics may be nil.
func New(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics, logger *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	backend, err := NewBackend(ctx, cfg.Storage)
	if err != nil {
		db.Close()
		return nil, err
	}

	renderer, err := render.New(cfg.Render.Engine, render.Options{
		Quality:      cfg.Render.Quality,
		Upscale:      cfg.Render.Upscale,
		MaxDimension: cfg.Render.MaxDimension,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Config:      cfg,
		DB:          db,
		Backend:     backend,
		Derivatives: storage.NewDerivativeRepository(db),
		FocalPoints: storage.NewFocalPointRepository(db),
		Calls:       storage.NewDetectionCallRepository(db),
		Sources: provider.NewSources(
			provider.NewLocalSource(cfg.Storage.Schemes),
			provider.NewHTTPSource(),
		),
		Renderer: renderer,
		Metrics:  metrics,
	}
	a.Registry = storage.NewRegistry([]storage.Backend{backend}, a.Derivatives, logger)

	clients := FocalClients(cfg.Focal, logger)
	a.Focal = provider.NewFocalDetector(clients, cfg.Focal.RatePerMinute, a.FocalPoints, a.Calls, renderer, logger)

	a.Service = service.NewDerivativeService(service.Dependencies{
		Backend:      backend,
		Registry:     a.Registry,
		Derivatives:  a.Derivatives,
		FocalPoints:  a.FocalPoints,
		Calls:        a.Calls,
		Sources:      a.Sources,
		Focal:        a.Focal,
		Renderer:     renderer,
		Metrics:      metrics,
		PublicURL:    cfg.Server.PublicURL,
		MaxDimension: cfg.Render.MaxDimension,
	}, logger)

	logger.Info("Components ready",
		zap.String("backend", backend.Name()),
		zap.String("engine", renderer.Name()),
		zap.Strings("schemes", a.Sources.Schemes()),
		zap.Int("focal_clients", len(clients)),
	)
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// NewBackend opens the configured derivative backend. The object store
// bucket is created when missing.
func NewBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendObjectStore:
		store, err := storage.NewObjectStore(storage.ObjectStoreConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating object store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		fs, err := storage.NewFileSystem(cfg.DerivativesDir)
		if err != nil {
			return nil, fmt.Errorf("creating filesystem: %w", err)
		}
		return fs, nil
	}
}

// FocalClients builds the LLM clients in configured order. Providers
// without an API key are skipped; detection disabled yields none.
func FocalClients(cfg config.FocalConfig, logger *zap.Logger) []llm.Client {
	if !cfg.Enabled {
		return nil
	}
	var clients []llm.Client
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "anthropic":
			if cfg.Anthropic.APIKey == "" {
				logger.Warn("Skipping anthropic focal provider, no API key")
				continue
			}
			clients = append(clients, llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
		case "openai":
			if cfg.OpenAI.APIKey == "" {
				logger.Warn("Skipping openai focal provider, no API key")
				continue
			}
			clients = append(clients, llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
		}
	}
	return clients
}
