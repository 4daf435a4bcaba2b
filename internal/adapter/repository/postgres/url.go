// Package postgres implements the URL record store and the click event
// store on top of PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"

	pg "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

type urlDB struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

// NextID reserves the identifier of the next URL record. Reserved ids are
// never handed out twice, even when the record is never saved.
func (r *URLRepository) NextID(ctx context.Context) (int64, error) {
	const op = "adapter.repository.postgres.URLRepository.NextID"
	const query = `SELECT nextval('url_records_id_seq')`

	var id int64

	if err := r.db.GetContext(ctx, &id, query); err != nil {
		return 0, fmt.Errorf("%s: failed to reserve id: %w: %w", op, entity.ErrPersistence, err)
	}

	return id, nil
}

// Save inserts a URL record. A short code that is already taken is reported
// as entity.ErrShortCodeExists; the unique constraint is the only arbiter.
func (r *URLRepository) Save(ctx context.Context, id int64, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO url_records(id, short_code, original_url) VALUES ($1, $2, $3)
		RETURNING id, short_code, original_url, created_at`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, id, shortCode, originalURL); err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into url_records table: %w: %w", op, entity.ErrPersistence, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByShortCode"
	const query = `SELECT id, short_code, original_url, created_at FROM url_records WHERE short_code = $1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_records table: %w: %w", op, entity.ErrPersistence, err)
	}

	return url.toEntity(), nil
}

// RetrieveStats returns the record for shortCode together with its total
// click count and its limit most recent clicks. All three reads come from
// one snapshot so the count and the list agree with each other.
func (r *URLRepository) RetrieveStats(ctx context.Context, shortCode string, limit int) (*entity.URLStats, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveStats"
	const (
		urlQuery    = `SELECT id, short_code, original_url, created_at FROM url_records WHERE short_code = $1`
		countQuery  = `SELECT COUNT(*) FROM click_events WHERE url_record_id = $1`
		clicksQuery = `SELECT id, url_record_id, clicked_at, ip_address, user_agent, referer
			FROM click_events
			WHERE url_record_id = $1
			ORDER BY clicked_at DESC, id DESC
			LIMIT $2`
	)

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w: %w", op, entity.ErrPersistence, err)
	}
	defer tx.Rollback()

	var url urlDB

	if err := tx.GetContext(ctx, &url, urlQuery, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_records table: %w: %w", op, entity.ErrPersistence, err)
	}

	stats := entity.URLStats{URL: *url.toEntity()}

	if err := tx.GetContext(ctx, &stats.ClickCount, countQuery, url.ID); err != nil {
		return nil, fmt.Errorf("%s: failed to count click_events rows: %w: %w", op, entity.ErrPersistence, err)
	}

	var clicks []clickDB

	if err := tx.SelectContext(ctx, &clicks, clicksQuery, url.ID, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to select from click_events table: %w: %w", op, entity.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w: %w", op, entity.ErrPersistence, err)
	}

	stats.RecentClicks = make([]entity.Click, 0, len(clicks))
	for _, c := range clicks {
		stats.RecentClicks = append(stats.RecentClicks, c.toEntity())
	}

	return &stats, nil
}
