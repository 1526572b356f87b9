package order

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/internal/entity"
	"github.com/tileware/orderhub/internal/presentation/http/response"
	repo "github.com/tileware/orderhub/internal/repository/order"
	service "github.com/tileware/orderhub/internal/service/order"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/tileware/orderhub/transport/http/order")

const (
	defaultPerPage = 20
	maxPerPage     = 100
	dateParam      = "2006-01-02"
)

// Service is the order surface the handler depends on.
type Service interface {
	Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	Get(ctx context.Context, identifier string) (*dto.OrderResponse, error)
	UpdateStatus(ctx context.Context, id int64, status int) (*dto.OrderResponse, error)
	Aggregate(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. The static aggregate
// route is registered ahead of the :id route.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/orders")
	g.GET("/aggregate", h.aggregate)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id/status", h.updateStatus)
}

func (h *Handler) aggregate(c echo.Context) error {
	b := response.New(c)

	groupBy := c.QueryParam("group_by")
	if groupBy == "" {
		return b.WithError(errorbank.BadRequest("group_by is required")).Build()
	}

	page, perPage, err := pagination(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	filter, err := aggregateFilter(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.aggregate", trace.WithAttributes(
		attribute.String("aggregate.group_by", groupBy),
	))
	defer span.End()

	buckets, total, err := h.svc.Aggregate(ctx, groupBy, page, perPage, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(buckets).
		WithMeta("page", page).
		WithMeta("per_page", perPage).
		WithMeta("total_items", total).
		WithMeta("total_pages", totalPages(total, perPage)).
		Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	identifier := c.Param("id")
	if identifier == "" {
		return b.WithError(errorbank.BadRequest("order identifier is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.get", trace.WithAttributes(
		attribute.String("order.identifier", identifier),
	))
	defer span.End()

	order, err := h.svc.Get(ctx, identifier)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	order, err := h.svc.Create(ctx, req)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(order).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		Status int `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int("order.status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.UpdateStatus(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func aggregateFilter(c echo.Context) (repo.Filter, error) {
	var f repo.Filter

	if raw := c.QueryParam("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil || !entity.ValidStatus(status) {
			return f, errorbank.BadRequest("status must be one of: 1, 2, 3, 4, 5")
		}
		f.Status = &status
	}

	if raw := c.QueryParam("from_date"); raw != "" {
		from, err := time.Parse(dateParam, raw)
		if err != nil {
			return f, errorbank.BadRequest("from_date must be formatted as YYYY-MM-DD")
		}
		f.FromDate = &from
	}

	if raw := c.QueryParam("to_date"); raw != "" {
		to, err := time.Parse(dateParam, raw)
		if err != nil {
			return f, errorbank.BadRequest("to_date must be formatted as YYYY-MM-DD")
		}
		// inclusive upper bound: the whole named day
		end := to.Add(24*time.Hour - time.Nanosecond)
		f.ToDate = &end
	}

	if f.FromDate != nil && f.ToDate != nil && f.FromDate.After(*f.ToDate) {
		return f, errorbank.BadRequest("from_date must not be after to_date")
	}

	if raw := c.QueryParam("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, errorbank.BadRequest("user_id must be an integer")
		}
		f.UserID = &userID
	}

	return f, nil
}

func pagination(c echo.Context) (page, perPage int, err error) {
	page = 1
	if raw := c.QueryParam("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errorbank.BadRequest("page must be a positive integer")
		}
	}

	perPage = defaultPerPage
	if raw := c.QueryParam("per_page"); raw != "" {
		perPage, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errorbank.BadRequest("per_page must be an integer")
		}
		if perPage < 1 {
			perPage = 1
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
	}
	return page, perPage, nil
}

func totalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}
