package repository

import (
	"context"
	"errors"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository persists document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// SaveChunks inserts the full chunk set of a document. Chunks are immutable
// once written; re-chunking a document means deleting and re-creating it.
func (r *ChunkRepository) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	for i := range chunks {
		c := &chunks[i]
		if err := domain.ValidateChunk(c); err != nil {
			return err
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, chunk_index, content, original_content, start_char, end_char, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, documentID, c.ChunkIndex, c.Content, c.OriginalContent, c.StartChar, c.EndChar, createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, chunk_index, content, original_content, start_char, end_char, created_at
		 FROM chunks WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.OriginalContent, &c.StartChar, &c.EndChar, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByDocument returns a document's chunks ordered by chunk index.
func (r *ChunkRepository) GetByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, original_content, start_char, end_char, created_at
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.OriginalContent, &c.StartChar, &c.EndChar, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteByDocument removes all chunks of a document, returning the count.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1`,
		documentID,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
