// Package usecase implements the shortening, redirect and statistics
// workflows on top of the repositories.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/pkg/shortcode"
)

const (
	DefaultMaxRetries = 5
	DefaultStatsLimit = 10
	MaxStatsLimit     = 100
)

type urlRepository interface {
	NextID(ctx context.Context) (int64, error)
	Save(ctx context.Context, id int64, shortCode, originalURL string) (*entity.URL, error)
	RetrieveStats(ctx context.Context, shortCode string, limit int) (*entity.URLStats, error)
}

type urlResolver interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
}

type clickRecorder interface {
	Record(shortCode string, clickedAt time.Time, visit entity.Visit)
}

type URLUseCase struct {
	urlRepo    urlRepository
	resolver   urlResolver
	recorder   clickRecorder
	gen        shortcode.Generator
	metrics    *metrics.Metrics
	maxRetries int
	now        func() time.Time
}

type Option func(*URLUseCase)

func WithMaxRetries(n int) Option {
	return func(uc *URLUseCase) {
		uc.maxRetries = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

// NewURLUseCase wires the use case. resolver serves the redirect lookups and
// is usually either urlRepo itself or a cache in front of it.
func NewURLUseCase(
	urlRepo urlRepository,
	resolver urlResolver,
	recorder clickRecorder,
	gen shortcode.Generator,
	m *metrics.Metrics,
	opts ...Option,
) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:    urlRepo,
		resolver:   resolver,
		recorder:   recorder,
		gen:        gen,
		metrics:    m,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL stores originalURL under a freshly generated short code. Every
// call mints a new record, even for a URL that was shortened before.
// A code taken by a concurrent writer is rejected by the store and a new one
// is drawn, at most maxRetries times.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	url, err := uc.shorten(ctx, originalURL)
	if err != nil {
		uc.metrics.URLsCreated.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uc.metrics.URLsCreated.WithLabelValues("success").Inc()

	return url, nil
}

func (uc *URLUseCase) shorten(ctx context.Context, originalURL string) (*entity.URL, error) {
	for i := 0; i < uc.maxRetries; i++ {
		id, err := uc.urlRepo.NextID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve id: %w", err)
		}

		shortCode, err := uc.gen.Generate(id)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		url, err := uc.urlRepo.Save(ctx, id, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("failed to shorten url: %w", err)
		}

		return url, nil
	}

	return nil, entity.ErrGenerationExhausted
}

// ResolveShortCode returns the record shortCode points to and hands the
// visit to the click recorder. The recorder never blocks, so the outcome
// and latency of a redirect do not depend on analytics.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string, visit entity.Visit) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.resolver.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.metrics.Redirects.WithLabelValues("not_found").Inc()
		} else {
			uc.metrics.Redirects.WithLabelValues("error").Inc()
		}

		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.recorder.Record(url.ShortCode, uc.now().UTC(), visit)
	uc.metrics.Redirects.WithLabelValues("found").Inc()

	return url, nil
}

// GetURLStats returns the click count and the limit most recent clicks of
// shortCode. A non-positive limit selects DefaultStatsLimit; larger limits
// are capped at MaxStatsLimit.
func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string, limit int) (*entity.URLStats, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	switch {
	case limit <= 0:
		limit = DefaultStatsLimit
	case limit > MaxStatsLimit:
		limit = MaxStatsLimit
	}

	stats, err := uc.urlRepo.RetrieveStats(ctx, shortCode, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return stats, nil
}
