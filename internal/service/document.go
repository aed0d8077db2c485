package service

import (
	"context"
	"fmt"
	"log"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/pagination"
)

// DocumentService exposes read and delete access to the ingested corpus.
type DocumentService struct {
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	vectors   VectorIndexInterface
}

func NewDocumentService(docRepo DocumentRepositoryInterface, chunkRepo ChunkRepositoryInterface, vectors VectorIndexInterface) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		vectors:   vectors,
	}
}

func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

func (s *DocumentService) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.chunkRepo.GetByDocument(ctx, documentID)
}

type ListDocumentsInput struct {
	Cursor string
	Limit  int
}

func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*pagination.PageResult[*domain.Document], error) {
	var cursor *pagination.Cursor
	if input.Cursor != "" {
		decoded, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, err
		}
		cursor = decoded
	}

	return s.docRepo.ListWithCursor(ctx, cursor, input.Limit)
}

// Delete removes a document with its chunks and embeddings. Embeddings go
// first so a partial failure never leaves vectors pointing at deleted
// chunks.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if _, err := s.docRepo.GetByID(ctx, id); err != nil {
		return err
	}

	removed, err := s.vectors.DeleteByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	if _, err := s.chunkRepo.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("deleted document %s (%d embeddings)", id, removed)
	return nil
}
