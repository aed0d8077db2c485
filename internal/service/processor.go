package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/extract"
	"github.com/corpusworks/docindex/internal/fingerprint"
	"github.com/corpusworks/docindex/internal/pagination"
	"github.com/corpusworks/docindex/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	FindByFingerprint(ctx context.Context, value string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	GetByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
}

// JobRepositoryInterface defines the repository interface for processing job persistence
type JobRepositoryInterface interface {
	Create(ctx context.Context, j *domain.ProcessingJob) error
	Update(ctx context.Context, j *domain.ProcessingJob) error
	GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
	ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProcessingJob, error)
}

// VectorIndexInterface defines the vector store interface for chunk embeddings
type VectorIndexInterface interface {
	Add(ctx context.Context, chunkID string, emb domain.Embedding) error
	Search(ctx context.Context, query []float32, limit int, threshold float64, metadata map[string]string) ([]domain.SearchResult, error)
	Delete(ctx context.Context, chunkID string) (bool, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	Dimensions() int
}

// TextExtractor decodes an uploaded file into plain text.
type TextExtractor interface {
	Extract(path, contentType string) (string, error)
}

// ChunkSplitter turns document text into ordered, annotated chunks.
type ChunkSplitter interface {
	Split(text string, doc *domain.Document) []domain.Chunk
}

// EmbeddingBatcher embeds texts in fixed-size batches, reporting each
// batch's vectors and cumulative progress as it goes.
type EmbeddingBatcher interface {
	EmbedAll(ctx context.Context, texts []string, onBatch func(batch [][]float32, done int) error) ([][]float32, error)
	Model() string
	Dimensions() int
}

// Stage progress bands. Each stage's entry transition jumps to the band
// floor; within-stage updates interpolate toward the ceiling.
const (
	progressExtracting    = 5
	progressExtracted     = 25
	progressDupChecked    = 35
	progressChunked       = 55
	progressEmbeddingMin  = 55
	progressEmbeddingSpan = 30
)

// Minimum meaningful text length after extraction, in runes.
const minContentRunes = 10

// DocumentProcessor runs the full ingestion pipeline for one uploaded file:
// extract, deduplicate, chunk, embed, index, then free the transient object.
type DocumentProcessor struct {
	jobRepo    JobRepositoryInterface
	uploadRepo UploadRepositoryInterface
	docRepo    DocumentRepositoryInterface
	chunkRepo  ChunkRepositoryInterface
	vectors    VectorIndexInterface
	storage    StorageClientInterface
	extractor  TextExtractor
	splitter   ChunkSplitter
	embedder   EmbeddingBatcher
	txRunner   TxRunner
	uuidGen    UUIDGenerator

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewDocumentProcessor(
	jobRepo JobRepositoryInterface,
	uploadRepo UploadRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	vectors VectorIndexInterface,
	storage StorageClientInterface,
	extractor TextExtractor,
	splitter ChunkSplitter,
	embedder EmbeddingBatcher,
	txRunner TxRunner,
) *DocumentProcessor {
	return &DocumentProcessor{
		jobRepo:    jobRepo,
		uploadRepo: uploadRepo,
		docRepo:    docRepo,
		chunkRepo:  chunkRepo,
		vectors:    vectors,
		storage:    storage,
		extractor:  extractor,
		splitter:   splitter,
		embedder:   embedder,
		txRunner:   txRunner,
		uuidGen:    &DefaultUUIDGenerator{},
		inFlight:   make(map[string]struct{}),
	}
}

// NewDocumentProcessorWithUUIDGen is NewDocumentProcessor with a custom UUID
// generator (for testing).
func NewDocumentProcessorWithUUIDGen(
	jobRepo JobRepositoryInterface,
	uploadRepo UploadRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	vectors VectorIndexInterface,
	storage StorageClientInterface,
	extractor TextExtractor,
	splitter ChunkSplitter,
	embedder EmbeddingBatcher,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *DocumentProcessor {
	p := NewDocumentProcessor(jobRepo, uploadRepo, docRepo, chunkRepo, vectors, storage, extractor, splitter, embedder, txRunner)
	p.uuidGen = uuidGen
	return p
}

// ProcessJob runs the pipeline for one job. A job already terminal or
// already being processed by this instance is skipped without error, and a
// dispatch naming a job that does not exist is dropped rather than retried.
// A non-terminal job past the initial state resumes: completed transitions
// are skipped and previously committed work is picked up where it stands.
// Pipeline failures are absorbed into the job's FAILED state and reported
// back wrapped as PROCESSING_FAILED.
func (p *DocumentProcessor) ProcessJob(ctx context.Context, jobID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentProcessor.ProcessJob", telemetry.SpanAttributes{
		JobID:     jobID,
		Operation: "ingest",
	})
	defer span.End()

	if !p.acquire(jobID) {
		log.Printf("job %s already in flight, skipping", jobID)
		return nil
	}
	defer p.release(jobID)

	job, err := p.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			log.Printf("job %s not found, dropping dispatch", jobID)
			return nil
		}
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.IsTerminal() {
		log.Printf("job %s already terminal (%s), skipping", jobID, job.Status)
		return nil
	}

	upload, err := p.uploadRepo.GetByID(ctx, job.UploadID)
	if err != nil {
		ferr := p.failJob(ctx, job, nil, fmt.Errorf("failed to load upload %s: %w", job.UploadID, err))
		if errors.Is(err, domain.ErrUploadNotFound) {
			// The job is now terminal; redelivering the trigger cannot help.
			return nil
		}
		return ferr
	}

	if err := p.run(ctx, job, upload); err != nil {
		return p.failJob(ctx, job, upload, err)
	}
	return nil
}

func (p *DocumentProcessor) run(ctx context.Context, job *domain.ProcessingJob, upload *domain.UploadedFile) error {
	// Extract. Always re-runs on a resumed job: the raw text is never
	// persisted anywhere the pipeline could recover it from.
	if err := p.transition(ctx, job, domain.JobStatusExtracting, "extracting text", progressExtracting); err != nil {
		return err
	}
	text, err := p.extractText(ctx, upload)
	if err != nil {
		return err
	}
	if len([]rune(strings.TrimSpace(text))) < minContentRunes {
		return fmt.Errorf("%w: document yielded no usable text", domain.ErrInsufficientContent)
	}
	if err := p.progress(ctx, job, progressExtracted); err != nil {
		return err
	}

	// Deduplicate.
	if err := p.transition(ctx, job, domain.JobStatusCheckingDuplicates, "checking for duplicates", progressExtracted); err != nil {
		return err
	}
	fp := fingerprint.Compute(text)
	job.Fingerprint = &fp

	// A fingerprint match on the job's own document is not a duplicate: it
	// is committed work from an interrupted run, picked up again below.
	existing := p.lookupDuplicate(ctx, fp.Value)
	resuming := existing != nil && job.DocumentID != nil && existing.ID == *job.DocumentID
	if existing != nil && !resuming {
		if err := job.MarkDuplicate(existing.ID); err != nil {
			return err
		}
		p.cleanupObject(ctx, job, upload)
		if err := p.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("failed to persist duplicate outcome: %w", err)
		}
		log.Printf("job %s: duplicate of document %s, skipped reprocessing", job.ID, existing.ID)
		return nil
	}
	if err := p.progress(ctx, job, progressDupChecked); err != nil {
		return err
	}

	// Chunk.
	if err := p.transition(ctx, job, domain.JobStatusChunking, "chunking document", progressDupChecked); err != nil {
		return err
	}
	var doc *domain.Document
	var chunks []domain.Chunk
	if resuming {
		doc = existing
		persisted, err := p.chunkRepo.GetByDocument(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to reload chunks for document %s: %w", doc.ID, err)
		}
		chunks = persisted
	} else {
		doc = domain.NewDocument(p.uuidGen.NewString(), deriveTitle(upload.Filename), text, upload.Key, fp, map[string]string{
			"filename":     upload.Filename,
			"content_type": upload.ContentType,
			"size":         strconv.FormatInt(upload.Size, 10),
			"upload_id":    upload.ID,
		}, time.Now().UTC())
		chunks = p.splitter.Split(text, doc)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: chunking produced no chunks", domain.ErrEmptyChunkSet)
	}

	// Document, chunks and the job's document reference land atomically so
	// a crash cannot leave committed work a later resume would not find.
	if !resuming {
		if err := p.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return fmt.Errorf("failed to create document: %w", err)
			}
			if err := repos.Chunks().SaveChunks(ctx, doc.ID, chunks); err != nil {
				return fmt.Errorf("failed to save chunks: %w", err)
			}
			job.DocumentID = &doc.ID
			if err := repos.Jobs().Update(ctx, job); err != nil {
				return fmt.Errorf("failed to record document on job: %w", err)
			}
			return nil
		}); err != nil {
			job.DocumentID = nil
			return err
		}
	}
	if err := job.SetChunkCounts(0, len(chunks)); err != nil {
		return err
	}
	if err := p.progress(ctx, job, progressChunked); err != nil {
		return err
	}

	// Embed and index.
	if err := p.transition(ctx, job, domain.JobStatusEmbedding, "generating embeddings", progressChunked); err != nil {
		return err
	}
	if err := p.embedChunks(ctx, job, chunks); err != nil {
		return err
	}

	// Complete.
	if err := job.MarkCompleted(); err != nil {
		return err
	}
	p.cleanupObject(ctx, job, upload)
	if err := p.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist completion: %w", err)
	}
	log.Printf("job %s completed: document %s, %d chunks", job.ID, doc.ID, len(chunks))
	return nil
}

// embedChunks embeds every chunk's annotated content and writes the vectors
// to the index batch by batch. Counters are persisted after each batch so a
// restarted job reports honest progress; re-indexing a chunk upserts, which
// keeps retries idempotent.
func (p *DocumentProcessor) embedChunks(ctx context.Context, job *domain.ProcessingJob, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	model := p.embedder.Model()
	dims := p.embedder.Dimensions()

	_, err := p.embedder.EmbedAll(ctx, texts, func(batch [][]float32, done int) error {
		start := done - len(batch)
		for i, vec := range batch {
			emb, err := domain.NewEmbedding(vec, model, dims)
			if err != nil {
				return err
			}
			if err := p.vectors.Add(ctx, chunks[start+i].ID, *emb); err != nil {
				return fmt.Errorf("failed to index chunk %s: %w", chunks[start+i].ID, err)
			}
		}
		if err := job.SetChunkCounts(done, len(chunks)); err != nil {
			return err
		}
		pct := progressEmbeddingMin + progressEmbeddingSpan*done/len(chunks)
		if pct > job.Progress {
			if err := job.SetProgress(pct); err != nil {
				return err
			}
		}
		return p.jobRepo.Update(ctx, job)
	})
	return err
}

func (p *DocumentProcessor) acquire(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[jobID]; busy {
		return false
	}
	p.inFlight[jobID] = struct{}{}
	return true
}

func (p *DocumentProcessor) release(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, jobID)
}

// transition advances the job state machine and persists the new state
// before the stage body runs, so observers never see stale statuses. A stage
// the job already recorded in an earlier, interrupted run is skipped.
func (p *DocumentProcessor) transition(ctx context.Context, job *domain.ProcessingJob, status domain.JobStatus, step string, pct int) error {
	if job.StageReached(status) {
		return nil
	}
	if err := job.Advance(status, step, pct); err != nil {
		return err
	}
	return p.jobRepo.Update(ctx, job)
}

// progress raises the percent indicator. Values at or below the current one
// are dropped, which keeps a resumed job's reported progress monotone while
// it redoes earlier stages.
func (p *DocumentProcessor) progress(ctx context.Context, job *domain.ProcessingJob, pct int) error {
	if pct <= job.Progress {
		return nil
	}
	if err := job.SetProgress(pct); err != nil {
		return err
	}
	return p.jobRepo.Update(ctx, job)
}

// extractText downloads the object into a temp file named after the
// declared content type and runs format-specific extraction on it.
func (p *DocumentProcessor) extractText(ctx context.Context, upload *domain.UploadedFile) (string, error) {
	data, err := p.storage.DownloadObject(ctx, upload.Key)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailed, "failed to download uploaded object", err)
	}

	// Word extraction dispatches .doc vs .docx on the file extension, so
	// the temp file carries one derived from the declared content type.
	ext := extract.NormalizeContentType(upload.ContentType)
	tmp, err := os.CreateTemp("", "docindex-*."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return p.extractor.Extract(tmpPath, upload.ContentType)
}

// lookupDuplicate is best effort: a failed lookup must not fail the job,
// so errors other than not-found are logged and treated as no duplicate.
func (p *DocumentProcessor) lookupDuplicate(ctx context.Context, fpValue string) *domain.Document {
	existing, err := p.docRepo.FindByFingerprint(ctx, fpValue)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			log.Printf("duplicate lookup failed, continuing without dedup: %v", err)
		}
		return nil
	}
	return existing
}

// failJob records a pipeline failure on the job and frees the uploaded
// object. The original error is always returned to the caller; cleanup
// or persistence problems are logged, never allowed to mask it.
func (p *DocumentProcessor) failJob(ctx context.Context, job *domain.ProcessingJob, upload *domain.UploadedFile, cause error) error {
	log.Printf("job %s failed: %v", job.ID, cause)
	wrapped := domain.NewDomainErrorWithCause(domain.ErrCodeProcessingFailed, "document processing failed", cause)
	if err := job.FailWithError(cause.Error()); err != nil {
		log.Printf("job %s: could not record failure: %v", job.ID, err)
		return wrapped
	}
	if upload != nil {
		p.cleanupObject(ctx, job, upload)
	}
	if err := p.jobRepo.Update(ctx, job); err != nil {
		log.Printf("job %s: could not persist failure state: %v", job.ID, err)
	}
	return wrapped
}

// cleanupObject deletes the transient uploaded object exactly once, after
// the job has reached a terminal state. Deletion failure leaves the flag
// unset so a later sweep can retry; it never fails the job.
func (p *DocumentProcessor) cleanupObject(ctx context.Context, job *domain.ProcessingJob, upload *domain.UploadedFile) {
	if job.ObjectDeleted {
		return
	}
	if err := p.storage.DeleteObject(ctx, upload.Key); err != nil {
		log.Printf("job %s: failed to delete object %s, leaving for cleanup sweep: %v", job.ID, upload.Key, err)
		return
	}
	if err := job.MarkObjectDeleted(); err != nil {
		log.Printf("job %s: %v", job.ID, err)
	}
}

// deriveTitle strips the extension from the uploaded filename.
func deriveTitle(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return filename
	}
	return base
}
