package search

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/internal/presentation/http/response"
	service "github.com/tileware/orderhub/internal/service/search"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/tileware/orderhub/transport/http/search")

const (
	minQueryLen    = 2
	maxQueryLen    = 200
	defaultPerPage = 20
	maxPerPage     = 100
)

// queryPattern restricts searches to word characters, whitespace and the
// wildcard/punctuation set the index tolerates.
var queryPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\*\.\-\_]+$`)

// Service is the search surface the handler depends on.
type Service interface {
	Search(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error)
}

// Handler exposes the order search endpoint over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs a search Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/api/orders/search", h.search)
}

func (h *Handler) search(c echo.Context) error {
	b := response.New(c)

	query := strings.TrimSpace(c.QueryParam("q"))
	if err := validateQuery(query); err != nil {
		return b.WithError(err).Build()
	}

	page, perPage, err := pagination(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.search", trace.WithAttributes(
		attribute.Int("search.page", page),
		attribute.Int("search.per_page", perPage),
	))
	defer span.End()

	results, total, err := h.svc.Search(ctx, query, page, perPage)
	if err != nil {
		return b.WithError(err).Build()
	}

	totalPages := 0
	if perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	return b.WithData(results).
		WithMeta("query", query).
		WithMeta("page", page).
		WithMeta("per_page", perPage).
		WithMeta("total", total).
		WithMeta("total_pages", totalPages).
		Build()
}

func validateQuery(query string) error {
	if len(query) < minQueryLen {
		return errorbank.BadRequest("search query must be at least 2 characters")
	}
	if len(query) > maxQueryLen {
		return errorbank.BadRequest("search query must not exceed 200 characters")
	}
	if !queryPattern.MatchString(query) {
		return errorbank.BadRequest("search query contains unsupported characters")
	}
	return nil
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
