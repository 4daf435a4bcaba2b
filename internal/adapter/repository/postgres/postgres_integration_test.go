//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/migrations"

	pg "github.com/vadimbarashkov/shortlink/pkg/postgres"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type RepositoryIntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *sqlx.DB
	urlRepo   *URLRepository
	clickRepo *ClickRepository
}

func (suite *RepositoryIntegrationTestSuite) SetupSuite() {
	suite.ctx = context.Background()

	pgCont, err := tcpostgres.Run(suite.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shortlink"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := pgCont.Terminate(suite.ctx); err != nil {
			suite.T().Errorf("Failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := pgCont.ConnectionString(suite.ctx, "sslmode=disable")
	if err != nil {
		suite.T().Fatalf("Failed to get connection string: %v", err)
	}

	if err := pg.RunMigrations(migrations.FS, ".", dsn); err != nil {
		suite.T().Fatalf("Failed to run migrations: %v", err)
	}

	suite.db, err = pg.New(suite.ctx, dsn)
	if err != nil {
		suite.T().Fatalf("Failed to connect to database: %v", err)
	}
	suite.T().Cleanup(func() {
		suite.db.Close()
	})

	suite.urlRepo = NewURLRepository(suite.db)
	suite.clickRepo = NewClickRepository(suite.db)
}

func (suite *RepositoryIntegrationTestSuite) TearDownSubTest() {
	_, err := suite.db.Exec(`TRUNCATE TABLE url_records RESTART IDENTITY CASCADE`)
	if err != nil {
		suite.T().Fatalf("Failed to clean tables: %v", err)
	}
}

func (suite *RepositoryIntegrationTestSuite) save(shortCode, originalURL string) *entity.URL {
	suite.T().Helper()

	id, err := suite.urlRepo.NextID(suite.ctx)
	suite.Require().NoError(err)

	url, err := suite.urlRepo.Save(suite.ctx, id, shortCode, originalURL)
	suite.Require().NoError(err)

	return url
}

func (suite *RepositoryIntegrationTestSuite) TestSave() {
	suite.Run("round trip", func() {
		created := suite.save("abc123", "https://example.com/a")

		url, err := suite.urlRepo.RetrieveByShortCode(suite.ctx, "abc123")

		suite.NoError(err)
		suite.Equal(created.ID, url.ID)
		suite.Equal("https://example.com/a", url.OriginalURL)
		suite.False(url.CreatedAt.IsZero())
	})

	suite.Run("short code exists", func() {
		suite.save("abc123", "https://example.com/a")

		id, err := suite.urlRepo.NextID(suite.ctx)
		suite.Require().NoError(err)

		url, err := suite.urlRepo.Save(suite.ctx, id, "abc123", "https://example.com/b")

		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
	})

	suite.Run("concurrent saves of one code", func() {
		const n = 20

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			conflicts int
		)

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				id, err := suite.urlRepo.NextID(suite.ctx)
				if err != nil {
					return
				}

				_, err = suite.urlRepo.Save(suite.ctx, id, "race01", fmt.Sprintf("https://example.com/%d", i))

				mu.Lock()
				defer mu.Unlock()

				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, entity.ErrShortCodeExists):
					conflicts++
				}
			}(i)
		}
		wg.Wait()

		suite.Equal(1, succeeded)
		suite.Equal(n-1, conflicts)
	})
}

func (suite *RepositoryIntegrationTestSuite) TestClicks() {
	suite.Run("unknown short code", func() {
		err := suite.clickRepo.Save(suite.ctx, "missing", time.Now(), entity.Visit{})

		suite.ErrorIs(err, entity.ErrURLNotFound)
	})

	suite.Run("stats of unknown short code", func() {
		stats, err := suite.urlRepo.RetrieveStats(suite.ctx, "missing", 10)

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(stats)
	})

	suite.Run("accumulation and ordering", func() {
		suite.save("abc123", "https://example.com/a")

		base := time.Now().UTC().Truncate(time.Microsecond)
		for i := 0; i < 5; i++ {
			visit := entity.Visit{UserAgent: fmt.Sprintf("agent-%d", i)}
			suite.Require().NoError(suite.clickRepo.Save(suite.ctx, "abc123", base.Add(time.Duration(i)*time.Second), visit))
		}
		// Same timestamp as the latest click: the higher id wins the tie.
		suite.Require().NoError(suite.clickRepo.Save(suite.ctx, "abc123", base.Add(4*time.Second), entity.Visit{UserAgent: "agent-tie"}))

		stats, err := suite.urlRepo.RetrieveStats(suite.ctx, "abc123", 3)

		suite.NoError(err)
		suite.Equal(int64(6), stats.ClickCount)
		suite.Len(stats.RecentClicks, 3)
		suite.Equal("agent-tie", stats.RecentClicks[0].UserAgent)
		suite.Equal("agent-4", stats.RecentClicks[1].UserAgent)
		suite.Equal("agent-3", stats.RecentClicks[2].UserAgent)
		suite.Empty(stats.RecentClicks[0].IPAddress)
	})
}

func TestRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}
