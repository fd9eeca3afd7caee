package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jacerider/neo-image/internal/model"
)

// FocalPointRepository stores one focal point per source uri.
type FocalPointRepository interface {
	GetByURI(ctx context.Context, uri string) (*model.FocalPoint, error)
	Upsert(ctx context.Context, fp *model.FocalPoint) error
	Delete(ctx context.Context, uri string) error
	Count(ctx context.Context) (int64, error)
}

type sqliteFocalPointRepository struct {
	db *sqlx.DB
}

// NewFocalPointRepository creates a new SQLite-backed FocalPointRepository.
func NewFocalPointRepository(db *sqlx.DB) FocalPointRepository {
	return &sqliteFocalPointRepository{db: db}
}

func (r *sqliteFocalPointRepository) GetByURI(ctx context.Context, uri string) (*model.FocalPoint, error) {
	var fp model.FocalPoint
	err := r.db.GetContext(ctx, &fp, "SELECT * FROM focal_points WHERE uri = ?", uri)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting focal point for %s: %w", uri, err)
	}
	return &fp, nil
}

func (r *sqliteFocalPointRepository) Upsert(ctx context.Context, fp *model.FocalPoint) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO focal_points (uri, x, y, source)
		VALUES (:uri, :x, :y, :source)
		ON CONFLICT (uri) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			source = excluded.source,
			updated_at = CURRENT_TIMESTAMP
	`, fp)
	if err != nil {
		return fmt.Errorf("upserting focal point for %s: %w", fp.URI, err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, "SELECT id FROM focal_points WHERE uri = ?", fp.URI); err != nil {
		return fmt.Errorf("reading focal point id: %w", err)
	}
	fp.ID = id
	return nil
}

func (r *sqliteFocalPointRepository) Delete(ctx context.Context, uri string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM focal_points WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("deleting focal point for %s: %w", uri, err)
	}
	return nil
}

func (r *sqliteFocalPointRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM focal_points")
	return count, err
}

// DetectionCallRepository handles persistence of detector call tracking.
type DetectionCallRepository interface {
	Create(ctx context.Context, call *model.DetectionCall) error
	CountByURI(ctx context.Context, uri string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type sqliteDetectionCallRepository struct {
	db *sqlx.DB
}

// NewDetectionCallRepository creates a new SQLite-backed DetectionCallRepository.
func NewDetectionCallRepository(db *sqlx.DB) DetectionCallRepository {
	return &sqliteDetectionCallRepository{db: db}
}

func (r *sqliteDetectionCallRepository) Create(ctx context.Context, call *model.DetectionCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO detection_calls (uri, provider, model, success, duration_ms)
		VALUES (:uri, :provider, :model, :success, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating detection call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteDetectionCallRepository) CountByURI(ctx context.Context, uri string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM detection_calls WHERE uri = ?", uri)
	return count, err
}

func (r *sqliteDetectionCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM detection_calls")
	return count, err
}
