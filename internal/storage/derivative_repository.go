package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jacerider/neo-image/internal/model"
)

// ErrNotFound is returned when a catalog row or a stored object does not
// exist. Callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("not found")

// DerivativeRepository is the catalog of generated derivatives. The bytes
// live in a Backend; the catalog only records what was generated where.
type DerivativeRepository interface {
	Get(ctx context.Context, identifier, uri string) (*model.Derivative, error)
	Upsert(ctx context.Context, d *model.Derivative) error
	ListByIdentifier(ctx context.Context, identifier string) ([]model.Derivative, error)
	DeleteByIdentifier(ctx context.Context, identifier string) (int64, error)
	Delete(ctx context.Context, identifier, uri string) (int64, error)
	Count(ctx context.Context) (int64, error)
	TotalBytes(ctx context.Context) (int64, error)
}

// sqliteDerivativeRepository is unexported; callers only see the interface.
type sqliteDerivativeRepository struct {
	db *sqlx.DB
}

// NewDerivativeRepository creates a new SQLite-backed DerivativeRepository.
func NewDerivativeRepository(db *sqlx.DB) DerivativeRepository {
	return &sqliteDerivativeRepository{db: db}
}

func (r *sqliteDerivativeRepository) Get(ctx context.Context, identifier, uri string) (*model.Derivative, error) {
	var d model.Derivative
	err := r.db.GetContext(ctx, &d,
		"SELECT * FROM derivatives WHERE identifier = ? AND uri = ?", identifier, uri)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting derivative %s for %s: %w", identifier, uri, err)
	}
	return &d, nil
}

// Upsert records a derivative, replacing the previous row for the same
// identifier and uri. d.ID is set from the stored row.
func (r *sqliteDerivativeRepository) Upsert(ctx context.Context, d *model.Derivative) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO derivatives (identifier, uri, backend, content_type, bytes, width, height)
		VALUES (:identifier, :uri, :backend, :content_type, :bytes, :width, :height)
		ON CONFLICT (identifier, uri) DO UPDATE SET
			backend = excluded.backend,
			content_type = excluded.content_type,
			bytes = excluded.bytes,
			width = excluded.width,
			height = excluded.height,
			updated_at = CURRENT_TIMESTAMP
	`, d)
	if err != nil {
		return fmt.Errorf("upserting derivative: %w", err)
	}

	// LastInsertId is not reliable for the update branch of an upsert.
	var id int64
	if err := r.db.GetContext(ctx, &id,
		"SELECT id FROM derivatives WHERE identifier = ? AND uri = ?", d.Identifier, d.URI); err != nil {
		return fmt.Errorf("reading derivative id: %w", err)
	}
	d.ID = id
	return nil
}

func (r *sqliteDerivativeRepository) ListByIdentifier(ctx context.Context, identifier string) ([]model.Derivative, error) {
	var ds []model.Derivative
	err := r.db.SelectContext(ctx, &ds,
		"SELECT * FROM derivatives WHERE identifier = ? ORDER BY uri ASC", identifier)
	if err != nil {
		return nil, fmt.Errorf("listing derivatives of %s: %w", identifier, err)
	}
	return ds, nil
}

func (r *sqliteDerivativeRepository) DeleteByIdentifier(ctx context.Context, identifier string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM derivatives WHERE identifier = ?", identifier)
	if err != nil {
		return 0, fmt.Errorf("deleting derivatives of %s: %w", identifier, err)
	}
	return res.RowsAffected()
}

func (r *sqliteDerivativeRepository) Delete(ctx context.Context, identifier, uri string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM derivatives WHERE identifier = ? AND uri = ?", identifier, uri)
	if err != nil {
		return 0, fmt.Errorf("deleting %s derivative of %s: %w", identifier, uri, err)
	}
	return res.RowsAffected()
}

func (r *sqliteDerivativeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM derivatives")
	return count, err
}

func (r *sqliteDerivativeRepository) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(bytes), 0) FROM derivatives")
	return total, err
}
