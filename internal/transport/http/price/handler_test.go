package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/pkg/errorbank"
)

type stubService struct {
	fetchFn func(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error)
}

func (s *stubService) FetchPrice(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
	return s.fetchFn(ctx, factory, collection, article)
}

func doGet(svc Service, target string) *httptest.ResponseRecorder {
	e := echo.New()
	Register(e, &Handler{svc: svc})
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFetchPrice(t *testing.T) {
	svc := &stubService{
		fetchFn: func(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
			assert.Equal(t, "cersanit", factory)
			assert.Equal(t, "calm", collection)
			assert.Equal(t, "a123", article)
			return &dto.PriceResponse{Price: decimal.RequireFromString("24.90"), Currency: "EUR"}, nil
		},
	}

	rec := doGet(svc, "/api/price?factory=cersanit&collection=calm&article=a123")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"24.9"`)
	assert.Contains(t, rec.Body.String(), `"currency":"EUR"`)
}

func TestFetchPriceMissingParams(t *testing.T) {
	svc := &stubService{
		fetchFn: func(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
			t.Fatal("service must not be called without all params")
			return nil, nil
		},
	}

	for _, target := range []string{
		"/api/price",
		"/api/price?factory=cersanit",
		"/api/price?factory=cersanit&collection=calm",
		"/api/price?collection=calm&article=a123",
	} {
		rec := doGet(svc, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target=%s", target)
	}
}

func TestFetchPriceNotFound(t *testing.T) {
	svc := &stubService{
		fetchFn: func(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
			return nil, errorbank.NotFound("article not found")
		},
	}

	rec := doGet(svc, "/api/price?factory=cersanit&collection=calm&article=missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFetchPriceUpstreamDown(t *testing.T) {
	svc := &stubService{
		fetchFn: func(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
			return nil, errorbank.Unavailable("all price sources failed")
		},
	}

	rec := doGet(svc, "/api/price?factory=cersanit&collection=calm&article=a123")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"unavailable"`)
}
