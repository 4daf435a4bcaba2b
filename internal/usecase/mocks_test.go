package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type mockURLRepository struct {
	mock.Mock
}

func (m *mockURLRepository) NextID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockURLRepository) Save(ctx context.Context, id int64, shortCode, originalURL string) (*entity.URL, error) {
	args := m.Called(ctx, id, shortCode, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *mockURLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *mockURLRepository) RetrieveStats(ctx context.Context, shortCode string, limit int) (*entity.URLStats, error) {
	args := m.Called(ctx, shortCode, limit)
	stats, _ := args.Get(0).(*entity.URLStats)
	return stats, args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(id int64) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(shortCode string, clickedAt time.Time, visit entity.Visit) {
	m.Called(shortCode, clickedAt, visit)
}

type mockClickRepository struct {
	mock.Mock
}

func (m *mockClickRepository) Save(ctx context.Context, shortCode string, clickedAt time.Time, visit entity.Visit) error {
	args := m.Called(ctx, shortCode, clickedAt, visit)
	return args.Error(0)
}
