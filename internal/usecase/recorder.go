package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"golang.org/x/sync/errgroup"
)

type clickRepository interface {
	Save(ctx context.Context, shortCode string, clickedAt time.Time, visit entity.Visit) error
}

type RecorderConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

type clickEvent struct {
	shortCode string
	clickedAt time.Time
	visit     entity.Visit
}

// ClickRecorder persists click events off the request path. Record only
// enqueues; a pool of workers started by Run performs the writes. Analytics
// is best effort: a full queue drops the event and a failed write is logged,
// neither is reported to the caller.
type ClickRecorder struct {
	repo    clickRepository
	cfg     RecorderConfig
	queue   chan clickEvent
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewClickRecorder(repo clickRepository, cfg RecorderConfig, logger *slog.Logger, m *metrics.Metrics) *ClickRecorder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	return &ClickRecorder{
		repo:    repo,
		cfg:     cfg,
		queue:   make(chan clickEvent, cfg.QueueSize),
		logger:  logger,
		metrics: m,
	}
}

// Record enqueues a click without blocking.
func (r *ClickRecorder) Record(shortCode string, clickedAt time.Time, visit entity.Visit) {
	ev := clickEvent{
		shortCode: shortCode,
		clickedAt: clickedAt,
		visit:     visit,
	}

	select {
	case r.queue <- ev:
	default:
		r.metrics.ClicksDropped.Inc()
		r.logger.Warn("click queue is full, dropping click event", slog.String("short_code", shortCode))
	}
}

// Run writes queued clicks until ctx is done, then drains what is left in
// the queue and returns.
func (r *ClickRecorder) Run(ctx context.Context) error {
	var g errgroup.Group

	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case ev := <-r.queue:
					r.write(ev)
				case <-ctx.Done():
					r.drain()
					return nil
				}
			}
		})
	}

	return g.Wait()
}

func (r *ClickRecorder) drain() {
	for {
		select {
		case ev := <-r.queue:
			r.write(ev)
		default:
			return
		}
	}
}

// write runs detached from the request that produced ev, which has usually
// finished by now.
func (r *ClickRecorder) write(ev clickEvent) {
	const op = "usecase.ClickRecorder.write"

	ctx := context.Background()
	if r.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.WriteTimeout)
		defer cancel()
	}

	err := r.repo.Save(ctx, ev.shortCode, ev.clickedAt, ev.visit)
	switch {
	case err == nil:
		r.metrics.ClicksRecorded.WithLabelValues("success").Inc()
	case errors.Is(err, entity.ErrURLNotFound):
		r.metrics.ClicksRecorded.WithLabelValues("skipped").Inc()
		r.logger.Debug("short code vanished before click was recorded",
			slog.String("op", op),
			slog.String("short_code", ev.shortCode),
		)
	default:
		r.metrics.ClicksRecorded.WithLabelValues("error").Inc()
		r.logger.Error("failed to record click",
			slog.String("op", op),
			slog.String("short_code", ev.shortCode),
			slog.Any("err", err),
		)
	}
}
