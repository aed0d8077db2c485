//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testDimensions = 1536

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func testDocument(id, fingerprintValue string) *domain.Document {
	return domain.NewDocument(id, "Quarterly Report", "Revenue grew this quarter across all segments.",
		"report.pdf",
		domain.ContentFingerprint{Algorithm: "sha256", Value: fingerprintValue},
		map[string]string{"content_type": "application/pdf"}, now())
}

func testUpload(id string) *domain.UploadedFile {
	return domain.NewUploadedFile(id, "report.pdf", 2048, "application/pdf",
		"docindex-uploads", "uploads/"+id+"/report.pdf", "us-east-1", now())
}

func createTestUpload(ctx context.Context, t *testing.T, pool *pgxpool.Pool) *domain.UploadedFile {
	t.Helper()
	u := testUpload(uuid.NewString())
	require.NoError(t, NewUploadRepository(pool).Create(ctx, u))
	return u
}

func createTestDocument(ctx context.Context, t *testing.T, pool *pgxpool.Pool) *domain.Document {
	t.Helper()
	d := testDocument(uuid.NewString(), uuid.NewString())
	require.NoError(t, NewDocumentRepository(pool).Create(ctx, d))
	return d
}

func testChunks(documentID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:              uuid.NewString(),
			DocumentID:      documentID,
			ChunkIndex:      i,
			Content:         "[ctx] segment",
			OriginalContent: "segment",
			StartChar:       i * 10,
			EndChar:         i*10 + 7,
			CreatedAt:       now(),
		}
	}
	return chunks
}

// basisVector returns a unit vector along the given axis, so cosine
// similarity between distinct axes is exactly 0 and along the same axis 1.
func basisVector(axis int) []float32 {
	v := make([]float32, testDimensions)
	v[axis] = 1
	return v
}

func testEmbedding(axis int) domain.Embedding {
	return domain.Embedding{
		Vector:     basisVector(axis),
		Model:      "text-embedding-3-small",
		Dimensions: testDimensions,
	}
}
