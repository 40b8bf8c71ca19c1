package workers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/gestao-virtual/gvbackend/config"
	"github.com/gestao-virtual/gvbackend/media"
	"github.com/gestao-virtual/gvbackend/realtime"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/utils"
)

// PhotoJob asks the pool to process one uploaded report photo: generate a
// thumbnail and extract EXIF metadata.
type PhotoJob struct {
	PhotoID uint
}

// PhotoProcessor runs a fixed pool of workers that turn freshly uploaded
// report photos into thumbnails plus extracted metadata. Jobs are deduped by
// photo ID while pending.
type PhotoProcessor struct {
	JobQueue  chan PhotoJob
	Config    config.Config
	Reports   repository.DailyReportRepository
	Store     media.Store
	Processor *media.Processor
	Hub       *realtime.Hub
	Logger    zerolog.Logger
	Wg        sync.WaitGroup
	StopChan  chan struct{}
	Pending   map[uint]bool
	Mutex     sync.Mutex
}

func NewPhotoProcessor(cfg config.Config, reports repository.DailyReportRepository, store media.Store, processor *media.Processor, hub *realtime.Hub, logger zerolog.Logger) *PhotoProcessor {
	queueSize := cfg.PhotoQueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	numWorkers := cfg.NumPhotoWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	pool := &PhotoProcessor{
		JobQueue:  make(chan PhotoJob, queueSize),
		Config:    cfg,
		Reports:   reports,
		Store:     store,
		Processor: processor,
		Hub:       hub,
		Logger:    logger,
		StopChan:  make(chan struct{}),
		Pending:   make(map[uint]bool),
	}
	pool.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.worker(i)
	}
	logger.Info().Int("workers", numWorkers).Int("queue_size", queueSize).
		Msg("started report photo worker pool")
	return pool
}

func (pp *PhotoProcessor) worker(id int) {
	defer pp.Wg.Done()

	for {
		select {
		case job, ok := <-pp.JobQueue:
			if !ok {
				return
			}
			pp.process(id, job)

			pp.Mutex.Lock()
			delete(pp.Pending, job.PhotoID)
			pp.Mutex.Unlock()

		case <-pp.StopChan:
			pp.Logger.Debug().Int("worker", id).Msg("photo worker stopping")
			return
		}
	}
}

func (pp *PhotoProcessor) process(workerID int, job PhotoJob) {
	logger := pp.Logger.With().Int("worker", workerID).Uint("photo_id", job.PhotoID).Logger()

	photo, err := pp.Reports.GetPhotoByID(job.PhotoID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load report photo, skipping job")
		return
	}

	if err := pp.Reports.MarkPhotoProcessing(photo.ID); err != nil {
		logger.Error().Err(err).Msg("failed to mark photo processing, skipping job")
		return
	}

	var taskErr error
	var thumbPathPtr *string
	var takenAtPtr *int64

	fullPath, err := pp.Store.GetFullPath(photo.OriginalPath)
	if err != nil {
		taskErr = fmt.Errorf("failed to resolve photo path: %w", err)
	} else if _, statErr := os.Stat(fullPath); statErr != nil {
		taskErr = fmt.Errorf("original photo not accessible: %w", statErr)
	} else {
		img, openErr := imaging.Open(fullPath, imaging.AutoOrientation(true))
		if openErr != nil {
			taskErr = fmt.Errorf("failed to decode photo: %w", openErr)
		} else {
			thumbPath, genErr := pp.Processor.GenerateThumbnail(img, pp.Config.ThumbnailMaxPx)
			if genErr != nil {
				taskErr = fmt.Errorf("thumbnail generation failed: %w", genErr)
			} else {
				thumbPathPtr = &thumbPath
			}
		}

		meta, metaErr := utils.GetPhotoMetadata(fullPath)
		if metaErr != nil {
			logger.Warn().Err(metaErr).Msg("failed to extract photo metadata")
		} else if meta != nil {
			takenAtPtr = meta.TakenAt
		}
	}

	if dbErr := pp.Reports.SetPhotoResult(photo.ID, thumbPathPtr, takenAtPtr, taskErr); dbErr != nil {
		logger.Error().Err(dbErr).Msg("failed to store photo processing result")
		return
	}

	status := "done"
	errMsg := ""
	if taskErr != nil {
		status = "error"
		errMsg = taskErr.Error()
		logger.Error().Err(taskErr).Msg("report photo processing failed")
	}

	if pp.Hub != nil {
		pp.Hub.Broadcast(realtime.Event{
			Type:   realtime.EventReportPhoto,
			Status: status,
			Error:  errMsg,
			Extra: map[string]interface{}{
				"photo_id":  photo.ID,
				"report_id": photo.ReportID,
			},
			Timestamp: time.Now().Unix(),
		})
	}
}

// QueueJob queues a photo for processing if not already pending
func (pp *PhotoProcessor) QueueJob(job PhotoJob) bool {
	pp.Mutex.Lock()
	if pp.Pending[job.PhotoID] {
		pp.Mutex.Unlock()
		return false
	}
	pp.Pending[job.PhotoID] = true
	pp.Mutex.Unlock()

	select {
	case pp.JobQueue <- job:
		return true
	default:
		pp.Logger.Warn().Uint("photo_id", job.PhotoID).Msg("photo job queue full, dropping job")
		pp.Mutex.Lock()
		delete(pp.Pending, job.PhotoID)
		pp.Mutex.Unlock()
		return false
	}
}

// RequeueUnprocessed re-enqueues photos left pending by an earlier shutdown.
// Called once on startup.
func (pp *PhotoProcessor) RequeueUnprocessed() {
	photos, err := pp.Reports.ListPhotosRequiringProcessing()
	if err != nil {
		pp.Logger.Error().Err(err).Msg("failed to list unprocessed photos")
		return
	}
	for _, photo := range photos {
		pp.QueueJob(PhotoJob{PhotoID: photo.ID})
	}
	if len(photos) > 0 {
		pp.Logger.Info().Int("count", len(photos)).Msg("requeued unprocessed report photos")
	}
}

func (pp *PhotoProcessor) Stop() {
	close(pp.StopChan)
	pp.Wg.Wait()
	pp.Logger.Info().Msg("all report photo workers stopped")
}
