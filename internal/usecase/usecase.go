package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// ErrAllocationExhausted is returned when every attempt to allocate a free short code collided.
var ErrAllocationExhausted = errors.New("maximum retries exceeded for generating short code")

const defaultMaxRetries = 5

type urlRepository interface {
	FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error)
	FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)
	Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
	IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	Delete(ctx context.Context, shortCode string) error
	ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error)
}

type codeGenerator interface {
	Generate() (string, error)
}

type Option func(*URLUseCase)

// WithMaxRetries bounds the number of codes tried per creation. Values below 1 keep the default.
func WithMaxRetries(n int) Option {
	return func(uc *URLUseCase) {
		if n > 0 {
			uc.maxRetries = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *URLUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// URLUseCase allocates, resolves and removes short links. It keeps no state
// between calls besides its collaborators.
type URLUseCase struct {
	urlRepo    urlRepository
	codeGen    codeGenerator
	maxRetries int
	logger     *slog.Logger
}

func New(urlRepo urlRepository, codeGen codeGenerator, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:    urlRepo,
		codeGen:    codeGen,
		maxRetries: defaultMaxRetries,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL returns the short link for originalURL, creating it when the URL
// has not been shortened before.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	normalized, err := normalizeURL(originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := uc.urlRepo.FindByOriginalURL(ctx, normalized)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, entity.ErrShortLinkNotFound) {
		return nil, fmt.Errorf("%s: failed to find short link: %w", op, err)
	}

	for i := 0; i < uc.maxRetries; i++ {
		shortCode, err := uc.codeGen.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		exists, err := uc.urlRepo.ExistsByShortCode(ctx, shortCode)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to check short code: %w", op, err)
		}
		if exists {
			continue
		}

		link, err := uc.urlRepo.Insert(ctx, shortCode, normalized)
		if err == nil {
			return link, nil
		}

		switch {
		case errors.Is(err, entity.ErrShortCodeExists):
			uc.logger.DebugContext(ctx, "short code taken concurrently, retrying",
				slog.String("op", op), slog.String("short_code", shortCode))
			continue
		case errors.Is(err, entity.ErrOriginalURLExists):
			uc.logger.DebugContext(ctx, "original url shortened concurrently, reusing existing link",
				slog.String("op", op), slog.String("original_url", normalized))

			link, err := uc.urlRepo.FindByOriginalURL(ctx, normalized)
			if errors.Is(err, entity.ErrShortLinkNotFound) {
				// The concurrent record is already gone, so allocate again.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("%s: failed to find concurrently created short link: %w", op, err)
			}

			return link, nil
		default:
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}
	}

	return nil, fmt.Errorf("%s: %w", op, ErrAllocationExhausted)
}

// ResolveShortCode counts one visit of shortCode and returns the updated link.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	link, err := uc.urlRepo.IncrementHitCount(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return link, nil
}

// GetURLInfo returns the link for shortCode without counting a visit.
func (uc *URLUseCase) GetURLInfo(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.GetURLInfo"

	link, err := uc.urlRepo.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url info: %w", op, err)
	}

	return link, nil
}

// ListURLs returns every live link, most visited first.
func (uc *URLUseCase) ListURLs(ctx context.Context) ([]*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ListURLs"

	links, err := uc.urlRepo.ListByHitCountDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return links, nil
}

func (uc *URLUseCase) DeleteURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeleteURL"

	if err := uc.urlRepo.Delete(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return nil
}

// normalizeURL trims raw, defaults a missing scheme to https and checks that
// the result is an absolute http(s) URL with a host.
func normalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("url is blank: %w", entity.ErrInvalidURL)
	}

	if !hasScheme(trimmed) {
		trimmed = "https://" + trimmed
	}

	u, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return "", fmt.Errorf("malformed url %q: %w", raw, entity.ErrInvalidURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: %w", u.Scheme, entity.ErrInvalidURL)
	}

	if u.Host == "" || u.Hostname() == "" || strings.ContainsAny(u.Host, " \t\r\n") {
		return "", fmt.Errorf("url %q has no valid host: %w", raw, entity.ErrInvalidURL)
	}

	return trimmed, nil
}

// hasScheme reports whether s starts with a scheme. A "://" that follows a
// path, query or fragment character belongs to the rest of the URL.
func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	return i > 0 && !strings.ContainsAny(s[:i], "/?#")
}
