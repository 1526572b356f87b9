package soap

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/dto"
	ordersvc "github.com/tileware/orderhub/internal/service/order"
	soapsvc "github.com/tileware/orderhub/internal/service/soap"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/tileware/orderhub/transport/http/soap")

// maxEnvelopeBytes bounds the accepted request body.
const maxEnvelopeBytes = 1 << 20

// OrderService is the order intake surface the handler depends on.
type OrderService interface {
	Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
}

// Handler accepts legacy SOAP order submissions.
type Handler struct {
	parser *soapsvc.Parser
	orders OrderService
	logger *zap.Logger
}

// NewHandler constructs a SOAP Handler.
func NewHandler(parser *soapsvc.Parser, orders *ordersvc.Service, logger *zap.Logger) *Handler {
	return &Handler{parser: parser, orders: orders, logger: logger}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/api/soap/orders", h.createOrder)
}

// Every failure renders as HTTP 500 with a fault envelope; legacy partner
// clients only distinguish 200 from non-200 and read the faultcode.
func (h *Handler) createOrder(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "soap.createOrder")
	defer span.End()

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.Contains(contentType, "xml") {
		return h.fault(c, true, "content type must be text/xml or application/xml")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEnvelopeBytes))
	if err != nil {
		return h.fault(c, true, "unreadable request body")
	}

	req, err := h.parser.Parse(body)
	if err != nil {
		return h.fault(c, true, errorbank.From(err).Message())
	}

	order, err := h.orders.Create(ctx, *req)
	if err != nil {
		appErr := errorbank.From(err)
		if appErr.Kind() == errorbank.KindBadRequest {
			return h.fault(c, true, appErr.Message())
		}
		h.logger.Error("soap order intake failed", zap.Error(err))
		return h.fault(c, false, "order processing failed")
	}

	payload, err := soapsvc.SuccessResponse(order.ID, order.Hash)
	if err != nil {
		return h.fault(c, false, "response rendering failed")
	}
	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, payload)
}

func (h *Handler) fault(c echo.Context, clientFault bool, message string) error {
	payload, err := soapsvc.FaultResponse(clientFault, message)
	if err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.Blob(http.StatusInternalServerError, echo.MIMETextXMLCharsetUTF8, payload)
}
