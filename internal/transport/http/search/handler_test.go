package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileware/orderhub/internal/dto"
)

type stubService struct {
	searchFn func(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error)
}

func (s *stubService) Search(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
	return s.searchFn(ctx, query, page, perPage)
}

func newTestServer(svc Service) *echo.Echo {
	e := echo.New()
	Register(e, &Handler{svc: svc})
	return e
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchReturnsResultsAndMeta(t *testing.T) {
	svc := &stubService{
		searchFn: func(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
			assert.Equal(t, "john smith", query)
			assert.Equal(t, 1, page)
			assert.Equal(t, 20, perPage)
			return []dto.OrderResponse{{ID: 1, Number: "ORD-2024-001"}}, 41, nil
		},
	}

	rec := doGet(newTestServer(svc), "/api/orders/search?q=john+smith")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Success bool                `json:"success"`
		Data    []dto.OrderResponse `json:"data"`
		Meta    map[string]any      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "john smith", payload.Meta["query"])
	assert.EqualValues(t, 41, payload.Meta["total"])
	assert.EqualValues(t, 3, payload.Meta["total_pages"])
}

func TestSearchQueryValidation(t *testing.T) {
	svc := &stubService{
		searchFn: func(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
			t.Fatal("service must not be called for invalid queries")
			return nil, 0, nil
		},
	}
	e := newTestServer(svc)

	for _, target := range []string{
		"/api/orders/search",
		"/api/orders/search?q=a",
		"/api/orders/search?q=" + strings.Repeat("a", 201),
		"/api/orders/search?q=" + "%3Cscript%3E",
		"/api/orders/search?q=john&page=0",
	} {
		rec := doGet(e, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target=%s", target)
	}
}

func TestSearchAcceptsWildcards(t *testing.T) {
	var got string
	svc := &stubService{
		searchFn: func(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
			got = query
			return nil, 0, nil
		},
	}

	rec := doGet(newTestServer(svc), "/api/orders/search?q=ORD-2024*")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ORD-2024*", got)
}
