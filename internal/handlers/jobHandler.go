package handlers

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/job"
	"github.com/capturelabs/capture-engine/internal/metrics"
	"github.com/capturelabs/capture-engine/internal/rag"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

var (
	handlerInstance *DocHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
	logRH           *logger_i.Logger
)

type DocHandler struct {
	service    *job.Service
	ragService rag.Service
	vector     vectorDB.DataProcessor
	cfg        config.Config
}

func InitHandlers(jobService *job.Service, ragService rag.Service, vector vectorDB.DataProcessor, cfg config.Config) {
	once.Do(func() {
		handlerInstance = &DocHandler{
			service:    jobService,
			ragService: ragService,
			vector:     vector,
			cfg:        cfg,
		}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting document handlers")
	})

}

// EnqueueIngestJob hands a freshly created pending document to the worker
// pool. The send blocks once the buffer is full, which back-pressures the
// producing HTTP request instead of dropping the job.
func EnqueueIngestJob(docId string, traceId string) {
	logJH.With("traceId", traceId, "doc id", docId)
	logJH.Info("To create new ingest job")
	handlerInstance.pushToJobChannel(docModel.IngestJob{
		DocId:       docId,
		TraceId:     traceId,
		CreatedTime: time.Now(),
	})
}

// private methods
func (h *DocHandler) pushToJobChannel(ingestJob docModel.IngestJob) {

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- ingestJob //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Queued ingest job")

	//ingestion involves batch processing which might take time - external system call
	//so every ingest job nudges the dispatcher; idle workers retire on their own,
	//which keeps the pool at 1 worker at most times and cuts resource spend
	atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount() //metrics
	h.service.DispatcherChannel <- true
}
