package repository

import (
	"context"
	"errors"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository persists Document records and supports the fingerprint
// lookup that backs deduplication.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	if err := domain.ValidateDocument(d); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, title, content, source_path, fingerprint_algorithm, fingerprint_value, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Title, d.Content, nullableString(d.SourcePath),
		d.Fingerprint.Algorithm, d.Fingerprint.Value, d.Metadata, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, content, source_path, fingerprint_algorithm, fingerprint_value, metadata, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	return scanDocument(row)
}

// FindByFingerprint returns the document holding the given fingerprint
// value, or ErrDocumentNotFound. At most one document exists per value.
func (r *DocumentRepository) FindByFingerprint(ctx context.Context, value string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, content, source_path, fingerprint_algorithm, fingerprint_value, metadata, created_at, updated_at
		 FROM documents WHERE fingerprint_value = $1`,
		value,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) FindBySource(ctx context.Context, sourcePath string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, content, source_path, fingerprint_algorithm, fingerprint_value, metadata, created_at, updated_at
		 FROM documents WHERE source_path = $1
		 ORDER BY created_at DESC LIMIT 1`,
		sourcePath,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, title, content, source_path, fingerprint_algorithm, fingerprint_value, metadata, created_at, updated_at
			 FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, title, content, source_path, fingerprint_algorithm, fingerprint_value, metadata, created_at, updated_at
			 FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore {
		nextCursor = pagination.CreateNextCursor(items, limit,
			func(d *domain.Document) string { return d.ID },
			func(d *domain.Document) time.Time { return d.CreatedAt },
		)
	}

	return &pagination.PageResult[*domain.Document]{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var sourcePath *string
	var createdAt, updatedAt time.Time
	err := row.Scan(&d.ID, &d.Title, &d.Content, &sourcePath,
		&d.Fingerprint.Algorithm, &d.Fingerprint.Value, &d.Metadata, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if sourcePath != nil {
		d.SourcePath = *sourcePath
	}
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt
	if d.Metadata == nil {
		d.Metadata = map[string]string{}
	}
	return &d, nil
}
