package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	uniqueViolationErrCode = "23505"

	shortCodeConstraint   = "short_links_short_code_key"
	originalURLConstraint = "short_links_original_url_key"
)

// uniqueViolation reports the constraint name when err is a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErrCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}

type shortLinkDB struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	HitCount    int64     `db:"hit_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (l *shortLinkDB) toEntity() *entity.ShortLink {
	return &entity.ShortLink{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		HitCount:    l.HitCount,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByOriginalURL"
	const query = `SELECT * FROM short_links WHERE original_url = $1`

	var link shortLinkDB

	if err := r.db.GetContext(ctx, &link, query, originalURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from short_links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByShortCode"
	const query = `SELECT * FROM short_links WHERE short_code = $1`

	var link shortLinkDB

	if err := r.db.GetContext(ctx, &link, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from short_links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "adapter.repository.postgres.URLRepository.ExistsByShortCode"
	const query = `SELECT EXISTS(SELECT 1 FROM short_links WHERE short_code = $1)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, fmt.Errorf("%s: failed to check short_links table: %w", op, err)
	}

	return exists, nil
}

func (r *URLRepository) Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.postgres.URLRepository.Insert"
	const query = `INSERT INTO short_links(short_code, original_url) VALUES ($1, $2) RETURNING *`

	var link shortLinkDB

	if err := r.db.GetContext(ctx, &link, query, shortCode, originalURL); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case originalURLConstraint:
				return nil, fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
			case shortCodeConstraint:
				return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
			}
		}

		return nil, fmt.Errorf("%s: failed to insert into short_links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *URLRepository) IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.postgres.URLRepository.IncrementHitCount"
	const query = `UPDATE short_links SET hit_count = hit_count + 1, updated_at = NOW() WHERE short_code = $1 RETURNING *`

	var link shortLinkDB

	if err := r.db.GetContext(ctx, &link, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update short_links table row: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.postgres.URLRepository.Delete"
	const query = `DELETE FROM short_links WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete from short_links table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	return nil
}

func (r *URLRepository) ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error) {
	const op = "adapter.repository.postgres.URLRepository.ListByHitCountDesc"
	const query = `SELECT * FROM short_links ORDER BY hit_count DESC, id`

	var rows []shortLinkDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from short_links table: %w", op, err)
	}

	links := make([]*entity.ShortLink, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toEntity())
	}

	return links, nil
}
