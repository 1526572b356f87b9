package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/config"
	"github.com/tileware/orderhub/internal/messaging"
	ordersvc "github.com/tileware/orderhub/internal/service/order"
	searchsvc "github.com/tileware/orderhub/internal/service/search"
	"github.com/tileware/orderhub/internal/worker"
)

var workerTracer = otel.Tracer("github.com/tileware/orderhub/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderIndexerHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderIndexerHandler mirrors newly created orders into the full-text
// index. Indexing the same order twice is an upsert, so redelivered events
// are harmless.
func NewOrderIndexerHandler(search *searchsvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.index", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order created", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		if err := search.Index(ctx, event.ID); err != nil {
			logger.Error("failed to index order",
				zap.Int64("id", event.ID),
				zap.String("number", event.Number),
				zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "index error")
			return err
		}

		logger.Info("order indexed",
			zap.Int64("id", event.ID),
			zap.String("number", event.Number))
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
