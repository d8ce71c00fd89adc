package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type mockURLRepository struct {
	mock.Mock
}

func newMockURLRepository(t mock.TestingT) *mockURLRepository {
	m := new(mockURLRepository)
	m.Test(t)
	return m
}

func (r *mockURLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	args := r.Called(ctx, originalURL)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (r *mockURLRepository) FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	args := r.Called(ctx, shortCode)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (r *mockURLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	args := r.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

func (r *mockURLRepository) Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	args := r.Called(ctx, shortCode, originalURL)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (r *mockURLRepository) IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	args := r.Called(ctx, shortCode)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (r *mockURLRepository) Delete(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *mockURLRepository) ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error) {
	args := r.Called(ctx)
	links, _ := args.Get(0).([]*entity.ShortLink)
	return links, args.Error(1)
}

type mockCodeGenerator struct {
	mock.Mock
}

func newMockCodeGenerator(t mock.TestingT) *mockCodeGenerator {
	m := new(mockCodeGenerator)
	m.Test(t)
	return m
}

func (g *mockCodeGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}
