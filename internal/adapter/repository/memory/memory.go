// Package memory provides a thread-safe in-process short link store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// URLRepository keeps short links in maps guarded by a single RWMutex.
// Records are cloned on the way in and out so callers never share state with the store.
type URLRepository struct {
	mu     sync.RWMutex
	nextID int64
	byCode map[string]*entity.ShortLink
	byURL  map[string]*entity.ShortLink
	now    func() time.Time
}

func NewURLRepository() *URLRepository {
	return &URLRepository{
		byCode: make(map[string]*entity.ShortLink),
		byURL:  make(map[string]*entity.ShortLink),
		now:    time.Now,
	}
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.FindByOriginalURL"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byURL[originalURL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	return link.Clone(), nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.FindByShortCode"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byCode[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	return link.Clone(), nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "adapter.repository.memory.URLRepository.ExistsByShortCode"

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byCode[shortCode]
	return ok, nil
}

func (r *URLRepository) Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.Insert"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byURL[originalURL]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
	}
	if _, ok := r.byCode[shortCode]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	r.nextID++
	now := r.now()

	link := &entity.ShortLink{
		ID:          r.nextID,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.byCode[shortCode] = link
	r.byURL[originalURL] = link

	return link.Clone(), nil
}

func (r *URLRepository) IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.IncrementHitCount"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byCode[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	link.HitCount++
	link.UpdatedAt = r.now()

	return link.Clone(), nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.memory.URLRepository.Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byCode[shortCode]
	if !ok {
		return fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	delete(r.byCode, shortCode)
	delete(r.byURL, link.OriginalURL)

	return nil
}

// ListByHitCountDesc returns a snapshot ordered by hit count, ties broken by id.
func (r *URLRepository) ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.ListByHitCountDesc"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	links := make([]*entity.ShortLink, 0, len(r.byCode))
	for _, link := range r.byCode {
		links = append(links, link.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(links, func(a, b *entity.ShortLink) int {
		if c := cmp.Compare(b.HitCount, a.HitCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return links, nil
}
