package repository

import (
	"context"
	"errors"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UploadRepository persists UploadedFile records.
type UploadRepository struct {
	db dbtx
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{db: pool}
}

func NewUploadRepositoryWithTx(tx pgx.Tx) *UploadRepository {
	return &UploadRepository{db: tx}
}

func (r *UploadRepository) Create(ctx context.Context, u *domain.UploadedFile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO uploaded_files (id, filename, size_bytes, content_type, bucket, storage_key, region, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Filename, u.Size, u.ContentType, u.Bucket, u.Key, u.Region, u.ExpiresAt, u.CreatedAt,
	)
	return err
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*domain.UploadedFile, error) {
	var u domain.UploadedFile
	err := r.db.QueryRow(ctx,
		`SELECT id, filename, size_bytes, content_type, bucket, storage_key, region, expires_at, created_at
		 FROM uploaded_files WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Filename, &u.Size, &u.ContentType, &u.Bucket, &u.Key, &u.Region, &u.ExpiresAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UploadRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM uploaded_files WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrUploadNotFound
	}
	return nil
}
