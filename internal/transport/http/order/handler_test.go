package order

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
	repo "github.com/tileware/orderhub/internal/repository/order"
	"github.com/tileware/orderhub/pkg/errorbank"
)

type stubService struct {
	createFn       func(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	getFn          func(ctx context.Context, identifier string) (*dto.OrderResponse, error)
	updateStatusFn func(ctx context.Context, id int64, status int) (*dto.OrderResponse, error)
	aggregateFn    func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error)
}

func (s *stubService) Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	return s.createFn(ctx, req)
}

func (s *stubService) Get(ctx context.Context, identifier string) (*dto.OrderResponse, error) {
	return s.getFn(ctx, identifier)
}

func (s *stubService) UpdateStatus(ctx context.Context, id int64, status int) (*dto.OrderResponse, error) {
	return s.updateStatusFn(ctx, id, status)
}

func (s *stubService) Aggregate(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
	return s.aggregateFn(ctx, groupBy, page, perPage, f)
}

func newTestServer(svc Service) *echo.Echo {
	e := echo.New()
	Register(e, &Handler{svc: svc})
	return e
}

func doRequest(e *echo.Echo, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAggregateReturnsMeta(t *testing.T) {
	svc := &stubService{
		aggregateFn: func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
			assert.Equal(t, "month", groupBy)
			assert.Equal(t, 2, page)
			assert.Equal(t, 10, perPage)
			return []dto.AggregationBucket{{Group: "2024-03", Count: 5}}, 45, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/aggregate?group_by=month&page=2&per_page=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Success bool                    `json:"success"`
		Data    []dto.AggregationBucket `json:"data"`
		Meta    map[string]any          `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "2024-03", payload.Data[0].Group)
	assert.EqualValues(t, 45, payload.Meta["total_items"])
	assert.EqualValues(t, 5, payload.Meta["total_pages"])
}

func TestAggregateRequiresGroupBy(t *testing.T) {
	svc := &stubService{
		aggregateFn: func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
			t.Fatal("service must not be called without group_by")
			return nil, 0, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/aggregate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAggregateDefaultPagination(t *testing.T) {
	svc := &stubService{
		aggregateFn: func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
			assert.Equal(t, 1, page)
			assert.Equal(t, defaultPerPage, perPage)
			return nil, 0, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/aggregate?group_by=day", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAggregateValidation(t *testing.T) {
	svc := &stubService{
		aggregateFn: func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
			t.Fatal("service must not be called for invalid input")
			return nil, 0, nil
		},
	}
	e := newTestServer(svc)

	for _, target := range []string{
		"/api/orders/aggregate?group_by=day&page=0",
		"/api/orders/aggregate?group_by=day&page=abc",
		"/api/orders/aggregate?group_by=day&per_page=abc",
		"/api/orders/aggregate?group_by=day&status=9",
		"/api/orders/aggregate?group_by=day&status=abc",
		"/api/orders/aggregate?group_by=day&from_date=2024-13-01",
		"/api/orders/aggregate?group_by=day&from_date=2024-06-01&to_date=2024-01-01",
		"/api/orders/aggregate?group_by=day&user_id=abc",
	} {
		rec := doRequest(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target=%s", target)
	}
}

func TestAggregateClampsPerPage(t *testing.T) {
	svc := &stubService{
		aggregateFn: func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
			assert.Equal(t, maxPerPage, perPage)
			return nil, 0, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/aggregate?group_by=day&per_page=500", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetByIdentifier(t *testing.T) {
	svc := &stubService{
		getFn: func(ctx context.Context, identifier string) (*dto.OrderResponse, error) {
			assert.Equal(t, "deadbeef", identifier)
			return &dto.OrderResponse{ID: 3, Hash: "deadbeef"}, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/deadbeef", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hash":"deadbeef"`)
}

func TestGetNotFound(t *testing.T) {
	svc := &stubService{
		getFn: func(ctx context.Context, identifier string) (*dto.OrderResponse, error) {
			return nil, errorbank.NotFound("order not found")
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestAggregateRouteWinsOverIdentifier(t *testing.T) {
	svc := &stubService{
		getFn: func(ctx context.Context, identifier string) (*dto.OrderResponse, error) {
			t.Fatal("aggregate must not be treated as an order identifier")
			return nil, nil
		},
		aggregateFn: func(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
			return nil, 0, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodGet, "/api/orders/aggregate?group_by=day", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateReturns201(t *testing.T) {
	svc := &stubService{
		createFn: func(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
			assert.Equal(t, "Bathroom renovation", req.Name)
			return &dto.OrderResponse{ID: 1, Number: "ORD-2024-001"}, nil
		},
	}

	body := `{"name":"Bathroom renovation","articles":[{"article_id":100,"amount":"2.5","price":"19.90"}]}`
	rec := doRequest(newTestServer(svc), http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"number":"ORD-2024-001"`)
}

func TestUpdateStatus(t *testing.T) {
	svc := &stubService{
		updateStatusFn: func(ctx context.Context, id int64, status int) (*dto.OrderResponse, error) {
			assert.Equal(t, int64(7), id)
			assert.Equal(t, 3, status)
			return &dto.OrderResponse{ID: 7, Status: 3}, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodPatch, "/api/orders/7/status", `{"status":3}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateStatusBadID(t *testing.T) {
	svc := &stubService{
		updateStatusFn: func(ctx context.Context, id int64, status int) (*dto.OrderResponse, error) {
			t.Fatal("service must not be called with a bad id")
			return nil, nil
		},
	}

	rec := doRequest(newTestServer(svc), http.MethodPatch, "/api/orders/abc/status", `{"status":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
