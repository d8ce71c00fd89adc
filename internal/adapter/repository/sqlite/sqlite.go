package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"gorm.io/gorm"
)

type shortLinkModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ShortCode   string    `gorm:"uniqueIndex;size:16;not null"`
	OriginalURL string    `gorm:"uniqueIndex;not null"`
	HitCount    int64     `gorm:"not null;default:0;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (shortLinkModel) TableName() string {
	return "short_links"
}

func (m *shortLinkModel) toEntity() *entity.ShortLink {
	return &entity.ShortLink{
		ID:          m.ID,
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		HitCount:    m.HitCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type URLRepository struct {
	db *gorm.DB
}

func NewURLRepository(db *gorm.DB) *URLRepository {
	return &URLRepository{db: db}
}

// Migrate creates or updates the short_links table.
func (r *URLRepository) Migrate(ctx context.Context) error {
	const op = "adapter.repository.sqlite.URLRepository.Migrate"

	if err := r.db.WithContext(ctx).AutoMigrate(&shortLinkModel{}); err != nil {
		return fmt.Errorf("%s: failed to migrate short_links table: %w", op, err)
	}

	return nil
}

func (r *URLRepository) findBy(ctx context.Context, column, value string) (*entity.ShortLink, error) {
	var m shortLinkModel

	err := r.db.WithContext(ctx).Where(column+" = ?", value).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrShortLinkNotFound
		}
		return nil, err
	}

	return m.toEntity(), nil
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.URLRepository.FindByOriginalURL"

	link, err := r.findBy(ctx, "original_url", originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.URLRepository.FindByShortCode"

	link, err := r.findBy(ctx, "short_code", shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "adapter.repository.sqlite.URLRepository.ExistsByShortCode"

	var count int64

	err := r.db.WithContext(ctx).Model(&shortLinkModel{}).Where("short_code = ?", shortCode).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%s: failed to count short links: %w", op, err)
	}

	return count > 0, nil
}

func (r *URLRepository) Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.URLRepository.Insert"

	m := shortLinkModel{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64

		if err := tx.Model(&shortLinkModel{}).Where("original_url = ?", originalURL).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return entity.ErrOriginalURLExists
		}

		if err := tx.Model(&shortLinkModel{}).Where("short_code = ?", shortCode).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return entity.ErrShortCodeExists
		}

		return tx.Create(&m).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrOriginalURLExists), errors.Is(err, entity.ErrShortCodeExists):
			return nil, fmt.Errorf("%s: %w", op, err)
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// Another process wrote the same row between the checks and the insert.
			return nil, fmt.Errorf("%s: %w", op, r.duplicateKeyError(ctx, originalURL))
		}
		return nil, fmt.Errorf("%s: failed to insert short link: %w", op, err)
	}

	return m.toEntity(), nil
}

// duplicateKeyError picks the sentinel for a unique index violation on
// insert. The original_url index wins when a row for originalURL now exists.
func (r *URLRepository) duplicateKeyError(ctx context.Context, originalURL string) error {
	if _, err := r.findBy(ctx, "original_url", originalURL); err == nil {
		return entity.ErrOriginalURLExists
	}

	return entity.ErrShortCodeExists
}

func (r *URLRepository) IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.URLRepository.IncrementHitCount"

	var m shortLinkModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&shortLinkModel{}).
			Where("short_code = ?", shortCode).
			Updates(map[string]any{
				"hit_count":  gorm.Expr("hit_count + ?", 1),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return entity.ErrShortLinkNotFound
		}

		return tx.Where("short_code = ?", shortCode).Take(&m).Error
	})
	if err != nil {
		if errors.Is(err, entity.ErrShortLinkNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: failed to increment hit count: %w", op, err)
	}

	return m.toEntity(), nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.sqlite.URLRepository.Delete"

	res := r.db.WithContext(ctx).Where("short_code = ?", shortCode).Delete(&shortLinkModel{})
	if res.Error != nil {
		return fmt.Errorf("%s: failed to delete short link: %w", op, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	return nil
}

func (r *URLRepository) ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.URLRepository.ListByHitCountDesc"

	var rows []shortLinkModel

	err := r.db.WithContext(ctx).Order("hit_count DESC").Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list short links: %w", op, err)
	}

	links := make([]*entity.ShortLink, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toEntity())
	}

	return links, nil
}
