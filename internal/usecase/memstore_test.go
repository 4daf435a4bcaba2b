package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// memStore is an in-memory stand-in for the postgres repositories. Like the
// database it is the only arbiter of short code uniqueness.
type memStore struct {
	mu     sync.Mutex
	seq    int64
	clicks int64
	byCode map[string]*entity.URL
	events map[int64][]entity.Click
}

func newMemStore() *memStore {
	return &memStore{
		byCode: make(map[string]*entity.URL),
		events: make(map[int64][]entity.Click),
	}
}

func (s *memStore) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	return s.seq, nil
}

func (s *memStore) Save(_ context.Context, id int64, shortCode, originalURL string) (*entity.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[shortCode]; ok {
		return nil, entity.ErrShortCodeExists
	}

	url := &entity.URL{
		ID:          id,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   time.Now().UTC(),
	}
	s.byCode[shortCode] = url

	return url, nil
}

func (s *memStore) RetrieveByShortCode(_ context.Context, shortCode string) (*entity.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.byCode[shortCode]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	cp := *url
	return &cp, nil
}

func (s *memStore) RetrieveStats(_ context.Context, shortCode string, limit int) (*entity.URLStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.byCode[shortCode]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	clicks := append([]entity.Click(nil), s.events[url.ID]...)
	sort.Slice(clicks, func(i, j int) bool {
		if !clicks[i].ClickedAt.Equal(clicks[j].ClickedAt) {
			return clicks[i].ClickedAt.After(clicks[j].ClickedAt)
		}
		return clicks[i].ID > clicks[j].ID
	})

	count := int64(len(clicks))
	if len(clicks) > limit {
		clicks = clicks[:limit]
	}

	return &entity.URLStats{
		URL:          *url,
		ClickCount:   count,
		RecentClicks: clicks,
	}, nil
}

// clickStore adapts memStore to the click repository contract.
type clickStore struct {
	*memStore
}

func (s clickStore) Save(_ context.Context, shortCode string, clickedAt time.Time, visit entity.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.byCode[shortCode]
	if !ok {
		return entity.ErrURLNotFound
	}

	s.clicks++
	s.events[url.ID] = append(s.events[url.ID], entity.Click{
		ID:        s.clicks,
		URLID:     url.ID,
		ClickedAt: clickedAt,
		Visit:     visit,
	})

	return nil
}
