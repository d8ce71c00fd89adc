package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
)

type HandlersTestSuite struct {
	suite.Suite
	logger         *httplog.Logger
	link           *entity.ShortLink
	urlUseCaseMock *mockURLUseCase
	server         *httptest.Server
	e              *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	suite.link = &entity.ShortLink{
		ID:          1,
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
		HitCount:    3,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlUseCaseMock = newMockURLUseCase(suite.T())

	router := NewRouter(suite.logger, suite.urlUseCaseMock, WithBaseURL("https://sho.rt/"))
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlUseCaseMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *HandlersTestSuite) TestShortenURL() {
	const path = "/api/url/create"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "empty request body")
	})

	suite.Run("invalid request body", func() {
		resp := suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "invalid request body")
	})

	suite.Run("missing url", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "original_url").
			HasValue("message", "this field is required")
	})

	suite.Run("url too long", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com/" + strings.Repeat("a", 2048)}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "original_url").
			HasValue("message", "value is too long")
	})

	suite.Run("invalid url", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "ftp://example.com").
			Once().
			Return(nil, fmt.Errorf("usecase.URLUseCase.ShortenURL: %w", entity.ErrInvalidURL))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "ftp://example.com"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "invalid url")
		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "original_url")
	})

	suite.Run("allocation exhausted", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, usecase.ErrAllocationExhausted)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "server error occurred")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "example.com").
			Once().
			Return(suite.link, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("id", suite.link.ID)
		resp.HasValue("short_code", suite.link.ShortCode)
		resp.HasValue("original_url", suite.link.OriginalURL)
		resp.HasValue("hit_count", suite.link.HitCount)
		resp.HasValue("created_at", suite.link.CreatedAt)
		resp.HasValue("updated_at", suite.link.UpdatedAt)
	})
}

func (suite *HandlersTestSuite) TestListURLs() {
	const path = "/api/url/all"

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("ListURLs", mock.Anything).
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("empty", func() {
		suite.urlUseCaseMock.
			On("ListURLs", mock.Anything).
			Once().
			Return([]*entity.ShortLink{}, nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Array().IsEmpty()
	})

	suite.Run("success", func() {
		other := &entity.ShortLink{ID: 2, ShortCode: "def456", OriginalURL: "https://b.com"}

		suite.urlUseCaseMock.
			On("ListURLs", mock.Anything).
			Once().
			Return([]*entity.ShortLink{suite.link, other}, nil)

		arr := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Array()

		arr.Length().IsEqual(2)
		arr.Value(0).Object().HasValue("short_code", "abc123").HasValue("hit_count", 3)
		arr.Value(1).Object().HasValue("short_code", "def456").HasValue("hit_count", 0)
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/api/url/%s"

	suite.Run("short link not found", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrShortLinkNotFound)

		resp := suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "short link not found")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return(suite.link, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com")
	})
}

func (suite *HandlersTestSuite) TestResolveShortCode() {
	const path = "/api/url/%s/redirect"

	suite.Run("short link not found", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrShortLinkNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return(suite.link, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			HasContentType("text/plain").
			Text().IsEqual("https://example.com")
	})
}

func (suite *HandlersTestSuite) TestGetURLInfo() {
	const path = "/api/url/%s/info"

	suite.Run("short link not found", func() {
		suite.urlUseCaseMock.
			On("GetURLInfo", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrShortLinkNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("GetURLInfo", mock.Anything, "abc123").
			Once().
			Return(suite.link, nil)

		resp := suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("id", suite.link.ID)
		resp.HasValue("short_code", suite.link.ShortCode)
		resp.HasValue("original_url", suite.link.OriginalURL)
		resp.HasValue("hit_count", suite.link.HitCount)
	})
}

func (suite *HandlersTestSuite) TestGetQRCode() {
	const path = "/api/url/%s/qr"

	suite.Run("short link not found", func() {
		suite.urlUseCaseMock.
			On("GetURLInfo", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrShortLinkNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("GetURLInfo", mock.Anything, "abc123").
			Once().
			Return(suite.link, nil)

		resp := suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			HasContentType("image/png")

		resp.Body().HasPrefix("\x89PNG")
	})
}

func (suite *HandlersTestSuite) TestDeleteURL() {
	const path = "/api/url/%s"

	suite.Run("short link not found", func() {
		suite.urlUseCaseMock.
			On("DeleteURL", mock.Anything, "abc123").
			Once().
			Return(entity.ErrShortLinkNotFound)

		suite.e.DELETE(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("DeleteURL", mock.Anything, "abc123").
			Once().
			Return(errors.New("unknown error"))

		suite.e.DELETE(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("DeleteURL", mock.Anything, "abc123").
			Once().
			Return(nil)

		suite.e.DELETE(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNoContent).
			Body().IsEmpty()
	})
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestShortURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/api/url/abc123/qr", nil)

	t.Run("configured base url", func(t *testing.T) {
		h := newURLHandler(nil, validator.New(), "https://sho.rt/")

		assert.Equal(t, "https://sho.rt/api/url/abc123", h.shortURL(req, "abc123"))
	})

	t.Run("derived from request", func(t *testing.T) {
		h := newURLHandler(nil, validator.New(), "")

		assert.Equal(t, "http://localhost:8080/api/url/abc123", h.shortURL(req, "abc123"))
	})
}
