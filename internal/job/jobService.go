package job

import (
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
)

// Service owns the ingestion queue. Handlers push IngestJobs in, the worker
// pool drains them; the dispatcher channel nudges the pool to scale up.
type Service struct {
	JobChannel        chan docModel.IngestJob
	RequestCount      int64
	DispatcherChannel chan bool
	DocStore          docModel.Store
}

type ServiceConfig struct {
	JobChannel        chan docModel.IngestJob
	RequestCount      int64
	DispatcherChannel chan bool
	DocStore          docModel.Store
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		DocStore:          cfg.DocStore,
	}
}
