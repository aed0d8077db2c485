//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/service"
	"github.com/corpusworks/docindex/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxRunner_Commit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool, testDimensions)

	doc := testDocument(uuid.NewString(), uuid.NewString())
	chunks := testChunks(doc.ID, 2)

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		if err := repos.Chunks().SaveChunks(ctx, doc.ID, chunks); err != nil {
			return err
		}
		return repos.Vectors().Add(ctx, chunks[0].ID, testEmbedding(0))
	})
	require.NoError(t, err)

	retrieved, err := NewDocumentRepository(pool).GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, retrieved.Title)

	saved, err := NewChunkRepository(pool).GetByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestTxRunner_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool, testDimensions)

	doc := testDocument(uuid.NewString(), uuid.NewString())
	boom := errors.New("mid-transaction failure")

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The document insert was rolled back with the failing callback
	_, err = NewDocumentRepository(pool).GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
