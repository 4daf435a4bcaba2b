package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type clickDB struct {
	ID          int64          `db:"id"`
	URLRecordID int64          `db:"url_record_id"`
	ClickedAt   time.Time      `db:"clicked_at"`
	IPAddress   sql.NullString `db:"ip_address"`
	UserAgent   sql.NullString `db:"user_agent"`
	Referer     sql.NullString `db:"referer"`
}

func (c *clickDB) toEntity() entity.Click {
	return entity.Click{
		ID:        c.ID,
		URLID:     c.URLRecordID,
		ClickedAt: c.ClickedAt,
		Visit: entity.Visit{
			IPAddress: c.IPAddress.String,
			UserAgent: c.UserAgent.String,
			Referer:   c.Referer.String,
		},
	}
}

type ClickRepository struct {
	db *sqlx.DB
}

func NewClickRepository(db *sqlx.DB) *ClickRepository {
	return &ClickRepository{db: db}
}

// Save appends a click event to the record owning shortCode. Resolving the
// owner and inserting happen in one statement; when no record owns the code
// nothing is written and entity.ErrURLNotFound is returned.
// Empty visit fields are stored as NULL.
func (r *ClickRepository) Save(ctx context.Context, shortCode string, clickedAt time.Time, visit entity.Visit) error {
	const op = "adapter.repository.postgres.ClickRepository.Save"
	const query = `INSERT INTO click_events(url_record_id, clicked_at, ip_address, user_agent, referer)
		SELECT id, $2::timestamptz, NULLIF($3::text, ''), NULLIF($4::text, ''), NULLIF($5::text, '')
		FROM url_records
		WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode, clickedAt, visit.IPAddress, visit.UserAgent, visit.Referer)
	if err != nil {
		return fmt.Errorf("%s: failed to insert into click_events table: %w: %w", op, entity.ErrPersistence, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w: %w", op, entity.ErrPersistence, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}
