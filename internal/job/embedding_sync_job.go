package job

import (
	"context"

	"github.com/carenest/carenest/internal/service"
)

type EmbeddingSyncJob struct {
	embeddings *service.EmbeddingService
	batchSize  int
}

func NewEmbeddingSyncJob(embeddings *service.EmbeddingService, batchSize int) *EmbeddingSyncJob {
	return &EmbeddingSyncJob{embeddings: embeddings, batchSize: batchSize}
}

func (j *EmbeddingSyncJob) Name() string {
	return "embedding_sync"
}

func (j *EmbeddingSyncJob) Run(ctx context.Context) error {
	if j.embeddings == nil {
		return nil
	}
	batch := j.batchSize
	if batch <= 0 {
		batch = 20
	}
	return j.embeddings.ProcessPending(ctx, batch)
}
