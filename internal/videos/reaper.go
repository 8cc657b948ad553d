package videos

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/reelnest/backend/internal/metrics"
)

// BlobDeleter removes stored video bytes.
type BlobDeleter interface {
	Delete(ctx context.Context, id string) error
}

// ReaperConfig controls the concurrency characteristics of the reaper.
type ReaperConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Reaper asynchronously deletes the video blobs of deleted reels.
type Reaper struct {
	store   BlobDeleter
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// ErrReaperClosed is returned when work is enqueued after Shutdown.
var ErrReaperClosed = errors.New("video reaper closed")

// NewReaper starts a worker pool deleting blobs from store.
func NewReaper(store BlobDeleter, cfg ReaperConfig, logger *slog.Logger) *Reaper {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Reaper{
		store:   store,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Enqueue schedules deletion of videoID.
func (r *Reaper) Enqueue(ctx context.Context, videoID string) error {
	if videoID == "" {
		return errors.New("video id must be provided")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrReaperClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.jobs <- videoID:
		metrics.ReaperQueueDepth.Inc()
		return nil
	}
}

// Shutdown stops accepting work and waits for queued deletions to drain. When
// ctx expires first, in-flight deletions are cancelled.
func (r *Reaper) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.jobs)
		r.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	case <-done:
		r.cancel()
		return nil
	}
}

func (r *Reaper) worker() {
	defer r.wg.Done()

	for videoID := range r.jobs {
		metrics.ReaperQueueDepth.Dec()
		if r.ctx.Err() != nil {
			r.logger.Warn("video reaper dropped deletion", "videoId", videoID)
			continue
		}
		r.handle(videoID)
	}
}

func (r *Reaper) handle(videoID string) {
	if r.store == nil {
		r.logger.Error("video reaper missing blob store", "videoId", videoID)
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	err := r.store.Delete(ctx, videoID)
	metrics.RecordReaperDeletion(err)
	if err != nil {
		r.logger.Error("delete video blob", "videoId", videoID, "error", err)
		return
	}
	r.logger.Debug("deleted video blob", "videoId", videoID)
}
