package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReportWriter is implemented by ReportRepo.
type ReportWriter interface {
	Insert(ctx context.Context, rep LoadReport) error
}

// Recorder writes reports from a background goroutine so the game loop
// never waits on the database. Enqueue drops reports when the queue is full.
type Recorder struct {
	w       ReportWriter
	queue   chan LoadReport
	timeout time.Duration
	log     *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewRecorder(w ReportWriter, queueSize int, log *zap.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 64
	}
	r := &Recorder{
		w:       w,
		queue:   make(chan LoadReport, queueSize),
		timeout: 5 * time.Second,
		log:     log,
	}
	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// Enqueue hands rep to the writer. Returns false if it was dropped.
func (r *Recorder) Enqueue(rep LoadReport) bool {
	select {
	case r.queue <- rep:
		return true
	default:
		r.log.Warn("load report queue full, dropping report", zap.String("state", rep.State))
		return false
	}
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	for rep := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.w.Insert(ctx, rep); err != nil {
			r.log.Error("write load report", zap.Error(err), zap.String("state", rep.State))
		}
		cancel()
	}
}

// Close stops accepting reports and waits for queued ones to be written.
// Enqueue must not be called after Close.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}
