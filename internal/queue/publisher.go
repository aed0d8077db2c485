package queue

import "context"

// Publisher adapts the queue to the ingestion-dispatch contract the
// services consume.
type Publisher struct {
	q Queue
}

func NewPublisher(q Queue) *Publisher {
	return &Publisher{q: q}
}

// PublishIngest enqueues an ingestion task for the given upload and job.
func (p *Publisher) PublishIngest(ctx context.Context, uploadID, jobID string) error {
	task, err := NewIngestTask(uploadID, jobID)
	if err != nil {
		return err
	}
	return p.q.Enqueue(ctx, task)
}
