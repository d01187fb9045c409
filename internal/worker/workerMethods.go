package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/metrics"
)

// executeJob runs one ingestion cycle. The job carries its own trace id from
// the request that enqueued it; the cycle deadline lives inside the rag
// service so a stuck model call cannot pin a worker forever.
func executeJob(ingestJob docModel.IngestJob) {
	start := time.Now()
	status := "completed"
	defer func() {
		metrics.CaptureJobMetrics(status, time.Since(start))
	}()

	logger.Debug("Processing ingest job:", "doc Id:", ingestJob.DocId, "trace Id", ingestJob.TraceId)

	if err := _ragService.IngestDocument(context.Background(), ingestJob); err != nil {
		status = "failed"
		logger.Error("Ingest job finished with failure", "doc Id:", ingestJob.DocId, "err", err)
		return
	}
	logger.Debug("Ingest job done", "doc Id:", ingestJob.DocId)
}

func removeWorker(reason string) {

	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()

}
