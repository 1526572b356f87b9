package price

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/config"
	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/tileware/orderhub/service/price")

// Fetcher retrieves a price from one upstream source. Implementations are
// registered in the fx group and selected per configured source name.
type Fetcher interface {
	Supports(source string) bool
	Fetch(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error)
}

// Service walks the configured source chain until one fetcher succeeds.
type Service struct {
	fetchers []Fetcher
	sources  []string
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Fetchers []Fetcher `group:"price.fetchers"`
	Config   config.Config
	Logger   *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		fetchers: p.Fetchers,
		sources:  p.Config.Price.Sources,
		logger:   p.Logger,
	}
}

// FetchPrice resolves a price for the article through the source chain. A
// failing source never aborts the chain; only after every source has been
// tried does the caller see an error. A definitive "article does not exist"
// answer is reported as such, anything else as upstream unavailability.
func (s *Service) FetchPrice(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "PriceService.FetchPrice", trace.WithAttributes(
		attribute.String("price.factory", factory),
		attribute.String("price.collection", collection),
		attribute.String("price.article", article),
	))
	defer span.End()

	if factory == "" || collection == "" || article == "" {
		return nil, errorbank.BadRequest("factory, collection and article are required")
	}

	var lastErr error
	for _, source := range s.sources {
		fetcher := s.fetcherFor(source)
		if fetcher == nil {
			s.logger.Warn("no fetcher registered for price source", zap.String("source", source))
			continue
		}

		resp, err := fetcher.Fetch(ctx, factory, collection, article)
		if err == nil {
			span.SetAttributes(attribute.String("price.source", source))
			return resp, nil
		}
		s.logger.Warn("price source failed",
			zap.String("source", source),
			zap.String("article", article),
			zap.Error(err))
		lastErr = err
	}

	if lastErr != nil {
		var appErr *errorbank.AppError
		if errors.As(lastErr, &appErr) && appErr.Kind() == errorbank.KindNotFound {
			return nil, appErr
		}
		return nil, errorbank.Unavailable("all price sources failed", errorbank.WithCause(lastErr))
	}
	return nil, errorbank.Unavailable("no price sources configured")
}

func (s *Service) fetcherFor(source string) Fetcher {
	for _, f := range s.fetchers {
		if f.Supports(source) {
			return f
		}
	}
	return nil
}
