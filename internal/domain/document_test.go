package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFingerprint() ContentFingerprint {
	return ContentFingerprint{Algorithm: FingerprintAlgorithmSHA256, Value: "abc123"}
}

func TestNewDocument(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocument("doc-1", "Report", "body text", "uploads/u/report.pdf", testFingerprint(), nil, now)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, now, doc.CreatedAt)
	assert.Equal(t, now, doc.UpdatedAt)
	// nil metadata normalizes to an empty map
	require.NotNil(t, doc.Metadata)
	assert.Empty(t, doc.Metadata)
}

func TestValidateDocument(t *testing.T) {
	now := time.Now().UTC()
	valid := func() *Document {
		return NewDocument("doc-1", "Report", "body text", "", testFingerprint(), nil, now)
	}

	assert.NoError(t, ValidateDocument(valid()))
	assert.Error(t, ValidateDocument(nil))

	d := valid()
	d.ID = ""
	assert.Error(t, ValidateDocument(d))

	d = valid()
	d.Title = ""
	assert.Error(t, ValidateDocument(d))

	d = valid()
	d.Content = ""
	assert.Error(t, ValidateDocument(d))

	d = valid()
	d.Fingerprint = ContentFingerprint{}
	assert.Error(t, ValidateDocument(d))
}

func TestValidateChunk(t *testing.T) {
	valid := func() *Chunk {
		return &Chunk{
			ID:              "c-1",
			DocumentID:      "doc-1",
			ChunkIndex:      0,
			Content:         "[ctx]\n\ntext",
			OriginalContent: "text",
			StartChar:       0,
			EndChar:         4,
		}
	}

	assert.NoError(t, ValidateChunk(valid()))
	assert.Error(t, ValidateChunk(nil))

	c := valid()
	c.ChunkIndex = -1
	assert.Error(t, ValidateChunk(c))

	c = valid()
	c.StartChar = 10
	c.EndChar = 4
	assert.Error(t, ValidateChunk(c))

	c = valid()
	c.Content = ""
	assert.Error(t, ValidateChunk(c))
}

func TestNewEmbedding(t *testing.T) {
	emb, err := NewEmbedding([]float32{0.1, 0.2, 0.3}, "text-embedding-3-small", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, emb.Dimensions)

	_, err = NewEmbedding([]float32{0.1, 0.2}, "text-embedding-3-small", 3)
	assert.ErrorIs(t, err, ErrInvalidEmbedding)

	_, err = NewEmbedding([]float32{0.1}, "", 1)
	assert.Error(t, err)
}

func TestContentFingerprint_Equal(t *testing.T) {
	a := ContentFingerprint{Algorithm: FingerprintAlgorithmSHA256, Value: "x"}
	b := ContentFingerprint{Algorithm: FingerprintAlgorithmSHA256, Value: "x"}
	c := ContentFingerprint{Algorithm: FingerprintAlgorithmSHA256, Value: "y"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.IsZero())
	assert.True(t, ContentFingerprint{}.IsZero())
}

func TestValidateUploadedFile(t *testing.T) {
	now := time.Now().UTC()
	valid := func() *UploadedFile {
		return NewUploadedFile("u-1", "report.pdf", 1024, "application/pdf", "bucket", "uploads/u-1/report.pdf", "us-east-1", now)
	}

	assert.NoError(t, ValidateUploadedFile(valid()))
	assert.Error(t, ValidateUploadedFile(nil))

	u := valid()
	u.Filename = ""
	assert.Error(t, ValidateUploadedFile(u))

	u = valid()
	u.Key = ""
	assert.Error(t, ValidateUploadedFile(u))

	u = valid()
	u.Size = -1
	assert.Error(t, ValidateUploadedFile(u))
}
