package repository

import (
	"context"
	"fmt"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorRepository stores chunk embeddings and runs cosine similarity
// search against them.
type VectorRepository struct {
	db         dbtx
	dimensions int
}

func NewVectorRepository(pool *pgxpool.Pool, dimensions int) *VectorRepository {
	return &VectorRepository{db: pool, dimensions: dimensions}
}

func NewVectorRepositoryWithTx(tx pgx.Tx, dimensions int) *VectorRepository {
	return &VectorRepository{db: tx, dimensions: dimensions}
}

func (r *VectorRepository) Dimensions() int {
	return r.dimensions
}

// Add upserts the embedding for a chunk. Re-adding the same chunk replaces
// the stored vector, so retried jobs converge on the same state.
func (r *VectorRepository) Add(ctx context.Context, chunkID string, emb domain.Embedding) error {
	if len(emb.Vector) != r.dimensions {
		return fmt.Errorf("%w: got %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(emb.Vector), r.dimensions)
	}
	cmdTag, err := r.db.Exec(ctx,
		`INSERT INTO chunk_embeddings (chunk_id, embedding, model, created_at)
		 SELECT c.id, $2, $3, NOW()
		 FROM chunks c WHERE c.id = $1
		 ON CONFLICT (chunk_id) DO UPDATE
		 SET embedding = EXCLUDED.embedding, model = EXCLUDED.model`,
		chunkID, pgvector.NewVector(emb.Vector), emb.Model,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// Search returns the chunks most similar to the query vector, best first.
// Results below the threshold are excluded. When metadata is non-empty,
// only chunks of documents whose metadata contains every given pair match.
func (r *VectorRepository) Search(ctx context.Context, query []float32, limit int, threshold float64, metadata map[string]string) ([]domain.SearchResult, error) {
	if len(query) != r.dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(query), r.dimensions)
	}
	if limit <= 0 {
		limit = 10
	}

	sql := `SELECT c.id, c.document_id, c.chunk_index, c.content, c.original_content,
	               c.start_char, c.end_char, c.created_at,
	               d.title, d.metadata,
	               1 - (e.embedding <=> $1) AS similarity,
	               e.embedding <=> $1 AS distance
	        FROM chunk_embeddings e
	        JOIN chunks c ON c.id = e.chunk_id
	        JOIN documents d ON d.id = c.document_id
	        WHERE 1 - (e.embedding <=> $1) >= $2`
	args := []any{pgvector.NewVector(query), threshold}

	if len(metadata) > 0 {
		sql += ` AND d.metadata @> $3::jsonb`
		args = append(args, metadata)
		sql += ` ORDER BY similarity DESC, c.id ASC LIMIT $4`
	} else {
		sql += ` ORDER BY similarity DESC, c.id ASC LIMIT $3`
	}
	args = append(args, limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		err := rows.Scan(
			&res.Chunk.ID, &res.Chunk.DocumentID, &res.Chunk.ChunkIndex,
			&res.Chunk.Content, &res.Chunk.OriginalContent,
			&res.Chunk.StartChar, &res.Chunk.EndChar, &res.Chunk.CreatedAt,
			&res.DocumentTitle, &res.Metadata, &res.Similarity, &res.Distance,
		)
		if err != nil {
			return nil, err
		}
		if res.Metadata == nil {
			res.Metadata = map[string]string{}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Delete removes the embedding for a chunk, reporting whether one existed.
func (r *VectorRepository) Delete(ctx context.Context, chunkID string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunk_embeddings WHERE chunk_id = $1`,
		chunkID,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// DeleteByDocument removes all embeddings of a document's chunks,
// returning the count.
func (r *VectorRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunk_embeddings
		 WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = $1)`,
		documentID,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
