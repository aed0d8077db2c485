package service

import (
	"context"
	"fmt"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/pagination"
	"github.com/stretchr/testify/mock"
)

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, j *domain.ProcessingJob) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJobRepository) Update(ctx context.Context, j *domain.ProcessingJob) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingJob), args.Error(1)
}

func (m *MockJobRepository) ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProcessingJob, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ProcessingJob), args.Error(1)
}

type MockUploadRepository struct {
	mock.Mock
}

func (m *MockUploadRepository) Create(ctx context.Context, u *domain.UploadedFile) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUploadRepository) GetByID(ctx context.Context, id string) (*domain.UploadedFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadedFile), args.Error(1)
}

func (m *MockUploadRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByFingerprint(ctx context.Context, value string) (*domain.Document, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) GetByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(int64), args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Add(ctx context.Context, chunkID string, emb domain.Embedding) error {
	args := m.Called(ctx, chunkID, emb)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, query []float32, limit int, threshold float64, metadata map[string]string) ([]domain.SearchResult, error) {
	args := m.Called(ctx, query, limit, threshold, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockVectorIndex) Delete(ctx context.Context, chunkID string) (bool, error) {
	args := m.Called(ctx, chunkID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorIndex) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVectorIndex) Dimensions() int {
	return m.Called().Int(0)
}

type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageClient) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorageClient) HeadObject(ctx context.Context, key string) (*ObjectMetadata, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ObjectMetadata), args.Error(1)
}

type MockIngestPublisher struct {
	mock.Mock
}

func (m *MockIngestPublisher) PublishIngest(ctx context.Context, uploadID, jobID string) error {
	args := m.Called(ctx, uploadID, jobID)
	return args.Error(0)
}

// stubTxRunner runs the callback against the supplied repositories without a
// real transaction.
type stubTxRunner struct {
	repos stubTxRepos
}

func (r *stubTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(r.repos)
}

type stubTxRepos struct {
	docs    DocumentRepositoryInterface
	chunks  ChunkRepositoryInterface
	jobs    JobRepositoryInterface
	vectors VectorIndexInterface
}

func (r stubTxRepos) Documents() DocumentRepositoryInterface { return r.docs }
func (r stubTxRepos) Chunks() ChunkRepositoryInterface       { return r.chunks }
func (r stubTxRepos) Jobs() JobRepositoryInterface           { return r.jobs }
func (r stubTxRepos) Vectors() VectorIndexInterface          { return r.vectors }

// stubExtractor returns fixed text regardless of the file on disk.
type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) Extract(path, contentType string) (string, error) {
	return e.text, e.err
}

// stubBatcher partitions texts into fixed-size batches of constant vectors,
// optionally failing before a given batch index.
type stubBatcher struct {
	batchSize   int
	dims        int
	failAtBatch int // 0-based; -1 never fails
}

func (b *stubBatcher) EmbedAll(ctx context.Context, texts []string, onBatch func(batch [][]float32, done int) error) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.ErrEmptyChunkSet
	}
	size := b.batchSize
	if size <= 0 {
		size = len(texts)
	}

	var vectors [][]float32
	batchIdx := 0
	for start := 0; start < len(texts); start += size {
		if b.failAtBatch >= 0 && batchIdx == b.failAtBatch {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailed, "embedding provider call failed", fmt.Errorf("stub failure"))
		}
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batch := make([][]float32, end-start)
		for i := range batch {
			batch[i] = make([]float32, b.dims)
		}
		vectors = append(vectors, batch...)
		if onBatch != nil {
			if err := onBatch(batch, len(vectors)); err != nil {
				return nil, err
			}
		}
		batchIdx++
	}
	return vectors, nil
}

func (b *stubBatcher) Model() string { return "stub-model" }

func (b *stubBatcher) Dimensions() int { return b.dims }

// seqUUIDGen issues predictable IDs for assertions.
type seqUUIDGen struct {
	prefix string
	n      int
}

func (g *seqUUIDGen) NewString() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
