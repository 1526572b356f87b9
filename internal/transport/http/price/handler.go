package price

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/internal/presentation/http/response"
	service "github.com/tileware/orderhub/internal/service/price"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/tileware/orderhub/transport/http/price")

// Service is the price surface the handler depends on.
type Service interface {
	FetchPrice(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error)
}

// Handler exposes the price lookup endpoint over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs a price Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/api/price", h.fetch)
}

func (h *Handler) fetch(c echo.Context) error {
	b := response.New(c)

	factory := c.QueryParam("factory")
	collection := c.QueryParam("collection")
	article := c.QueryParam("article")
	if factory == "" || collection == "" || article == "" {
		return b.WithError(errorbank.BadRequest("factory, collection and article are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "prices.fetch", trace.WithAttributes(
		attribute.String("price.factory", factory),
		attribute.String("price.article", article),
	))
	defer span.End()

	price, err := h.svc.FetchPrice(ctx, factory, collection, article)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(price).Build()
}
