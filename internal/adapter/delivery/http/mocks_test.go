package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type mockURLUseCase struct {
	mock.Mock
}

func newMockURLUseCase(t mock.TestingT) *mockURLUseCase {
	m := new(mockURLUseCase)
	m.Test(t)
	return m
}

func (m *mockURLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	args := m.Called(ctx, originalURL)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (m *mockURLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	args := m.Called(ctx, shortCode)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (m *mockURLUseCase) GetURLInfo(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	args := m.Called(ctx, shortCode)
	link, _ := args.Get(0).(*entity.ShortLink)
	return link, args.Error(1)
}

func (m *mockURLUseCase) ListURLs(ctx context.Context) ([]*entity.ShortLink, error) {
	args := m.Called(ctx)
	links, _ := args.Get(0).([]*entity.ShortLink)
	return links, args.Error(1)
}

func (m *mockURLUseCase) DeleteURL(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}
