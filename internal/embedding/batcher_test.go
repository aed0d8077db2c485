package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockClient) Model() string {
	return m.Called().String(0)
}

func (m *MockClient) Dimensions() int {
	return m.Called().Int(0)
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("text-%d", i)
	}
	return out
}

func vectorsFor(in []string) [][]float32 {
	out := make([][]float32, len(in))
	for i := range in {
		out[i] = []float32{float32(i)}
	}
	return out
}

func TestEmbedAll_SingleBatch(t *testing.T) {
	client := new(MockClient)
	b := NewBatcher(client, 10)

	in := texts(3)
	client.On("GenerateEmbeddings", mock.Anything, in).Return(vectorsFor(in), nil)

	vectors, err := b.EmbedAll(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	client.AssertNumberOfCalls(t, "GenerateEmbeddings", 1)
}

func TestEmbedAll_PartitionsIntoBatches(t *testing.T) {
	client := new(MockClient)
	b := NewBatcher(client, 2)

	in := texts(5)
	client.On("GenerateEmbeddings", mock.Anything, in[0:2]).Return(vectorsFor(in[0:2]), nil)
	client.On("GenerateEmbeddings", mock.Anything, in[2:4]).Return(vectorsFor(in[2:4]), nil)
	client.On("GenerateEmbeddings", mock.Anything, in[4:5]).Return(vectorsFor(in[4:5]), nil)

	var doneCounts []int
	var batchSizes []int
	vectors, err := b.EmbedAll(context.Background(), in, func(batch [][]float32, done int) error {
		batchSizes = append(batchSizes, len(batch))
		doneCounts = append(doneCounts, done)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	assert.Equal(t, []int{2, 4, 5}, doneCounts)
	client.AssertExpectations(t)
}

func TestEmbedAll_EmptyInput(t *testing.T) {
	b := NewBatcher(new(MockClient), 2)

	_, err := b.EmbedAll(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyChunkSet)
}

func TestEmbedAll_ProviderFailureMidway(t *testing.T) {
	client := new(MockClient)
	b := NewBatcher(client, 2)

	in := texts(4)
	client.On("GenerateEmbeddings", mock.Anything, in[0:2]).Return(vectorsFor(in[0:2]), nil)
	client.On("GenerateEmbeddings", mock.Anything, in[2:4]).Return(nil, errors.New("provider down"))

	var lastDone int
	_, err := b.EmbedAll(context.Background(), in, func(batch [][]float32, done int) error {
		lastDone = done
		return nil
	})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingFailed, domainErr.Code)

	// The first batch completed and was reported before the failure
	assert.Equal(t, 2, lastDone)
}

func TestEmbedAll_MisalignedProviderResponse(t *testing.T) {
	client := new(MockClient)
	b := NewBatcher(client, 3)

	in := texts(3)
	client.On("GenerateEmbeddings", mock.Anything, in).Return(vectorsFor(in[0:2]), nil)

	_, err := b.EmbedAll(context.Background(), in, nil)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingFailed, domainErr.Code)
}

func TestEmbedAll_OnBatchErrorStops(t *testing.T) {
	client := new(MockClient)
	b := NewBatcher(client, 2)

	in := texts(4)
	client.On("GenerateEmbeddings", mock.Anything, in[0:2]).Return(vectorsFor(in[0:2]), nil)

	sentinel := errors.New("index write failed")
	_, err := b.EmbedAll(context.Background(), in, func(batch [][]float32, done int) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	client.AssertNumberOfCalls(t, "GenerateEmbeddings", 1)
}

func TestNewBatcher_DefaultSize(t *testing.T) {
	b := NewBatcher(new(MockClient), 0)
	assert.Equal(t, DefaultBatchSize, b.BatchSize())

	b = NewBatcher(new(MockClient), -5)
	assert.Equal(t, DefaultBatchSize, b.BatchSize())

	b = NewBatcher(new(MockClient), 7)
	assert.Equal(t, 7, b.BatchSize())
}
