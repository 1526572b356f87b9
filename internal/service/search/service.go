package search

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/config"
	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/internal/entity"
	repo "github.com/tileware/orderhub/internal/repository/order"
	"github.com/tileware/orderhub/internal/search/manticore"
	orderservice "github.com/tileware/orderhub/internal/service/order"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/tileware/orderhub/service/search")

// rebuildBatchSize bounds memory use during a full reindex.
const rebuildBatchSize = 500

// Searcher is the full-text daemon surface the pipeline depends on.
type Searcher interface {
	SearchIDs(ctx context.Context, query string, offset, limit int) ([]int64, error)
	Count(ctx context.Context, query string) (int, error)
	Insert(ctx context.Context, doc manticore.Document) error
	Delete(ctx context.Context, id int64) error
}

// Repository is the relational fallback surface.
type Repository interface {
	Search(ctx context.Context, query string, page, perPage int) ([]*entity.Order, error)
	TotalSearchCount(ctx context.Context, query string) (int, error)
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	ListBatch(ctx context.Context, offset, limit int) ([]*entity.Order, error)
}

// OrderProvider hydrates remote hits into response projections.
type OrderProvider interface {
	GetByID(ctx context.Context, id int64) (*dto.OrderResponse, error)
	EntityToDTO(order *entity.Order) dto.OrderResponse
}

// Service runs order searches against the full-text daemon with a silent
// relational fallback: callers never observe whether the daemon was
// reachable, only results.
type Service struct {
	client  Searcher
	repo    Repository
	orders  OrderProvider
	logger  *zap.Logger
	enabled bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Client     *manticore.Client
	Repository *repo.Repository
	Orders     *orderservice.Service
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		client:  p.Client,
		repo:    p.Repository,
		orders:  p.Orders,
		logger:  p.Logger,
		enabled: p.Config.Search.Enabled,
	}
}

// NormalizeQuery trims the query and wraps it in wildcards unless the caller
// already supplied wildcard characters. Idempotent: normalizing a normalized
// query changes nothing.
func NormalizeQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	if strings.ContainsAny(query, "*?") {
		return query
	}
	return "*" + query + "*"
}

// Search runs the two-stage pipeline: full-text ids plus count from the
// daemon, hydrated through the order service; any daemon failure degrades to
// the relational substring search over the same page window.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
	ctx, span := serviceTracer.Start(ctx, "SearchService.Search", trace.WithAttributes(
		attribute.Int("search.page", page),
		attribute.Int("search.per_page", perPage),
	))
	defer span.End()

	query = strings.TrimSpace(query)

	if s.enabled {
		results, total, err := s.remoteSearch(ctx, query, page, perPage)
		if err == nil {
			span.SetAttributes(attribute.String("search.source", "manticore"))
			return results, total, nil
		}
		s.logger.Warn("full-text search unavailable, falling back to database",
			zap.String("query", query), zap.Error(err))
		span.RecordError(err)
	}

	span.SetAttributes(attribute.String("search.source", "database"))
	return s.fallbackSearch(ctx, query, page, perPage)
}

func (s *Service) remoteSearch(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
	normalized := NormalizeQuery(query)
	offset := (page - 1) * perPage

	ids, err := s.client.SearchIDs(ctx, normalized, offset, perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.client.Count(ctx, normalized)
	if err != nil {
		return nil, 0, err
	}

	results := make([]dto.OrderResponse, 0, len(ids))
	for _, id := range ids {
		order, err := s.orders.GetByID(ctx, id)
		if err != nil {
			// Index may lag deletes; drop stale hits instead of failing the page.
			s.logger.Warn("dropping search hit without backing order",
				zap.Int64("id", id), zap.Error(err))
			continue
		}
		results = append(results, *order)
	}
	return results, total, nil
}

func (s *Service) fallbackSearch(ctx context.Context, query string, page, perPage int) ([]dto.OrderResponse, int, error) {
	orders, err := s.repo.Search(ctx, query, page, perPage)
	if err != nil {
		return nil, 0, errorbank.Internal("search failed", errorbank.WithCause(err))
	}
	total, err := s.repo.TotalSearchCount(ctx, query)
	if err != nil {
		return nil, 0, errorbank.Internal("search count failed", errorbank.WithCause(err))
	}

	results := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		results = append(results, s.orders.EntityToDTO(order))
	}
	return results, total, nil
}

// Index mirrors one order into the full-text index. Reindexing an already
// indexed order is an upsert.
func (s *Service) Index(ctx context.Context, id int64) error {
	if !s.enabled {
		return nil
	}
	ctx, span := serviceTracer.Start(ctx, "SearchService.Index", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return err
	}
	if err := s.client.Insert(ctx, documentFrom(order)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// Remove deletes one order from the full-text index.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if !s.enabled {
		return nil
	}
	ctx, span := serviceTracer.Start(ctx, "SearchService.Remove", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	return s.client.Delete(ctx, id)
}

// RebuildIndex walks every order in batches and reinserts it into the index.
// Safe to run repeatedly. Returns the number of indexed orders.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "SearchService.RebuildIndex")
	defer span.End()

	var indexed int
	for offset := 0; ; offset += rebuildBatchSize {
		orders, err := s.repo.ListBatch(ctx, offset, rebuildBatchSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch load failed")
			return indexed, err
		}
		for _, order := range orders {
			if err := s.client.Insert(ctx, documentFrom(order)); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "insert failed")
				return indexed, err
			}
			indexed++
		}
		if len(orders) < rebuildBatchSize {
			break
		}
	}
	span.SetAttributes(attribute.Int("search.indexed", indexed))
	return indexed, nil
}

// documentFrom flattens an order and its article names into an index document.
func documentFrom(order *entity.Order) manticore.Document {
	var articles []string
	for _, a := range order.Articles {
		if a.ArticleCode != nil && *a.ArticleCode != "" {
			articles = append(articles, *a.ArticleCode)
		}
		if a.ArticleName != nil && *a.ArticleName != "" {
			articles = append(articles, *a.ArticleName)
		}
	}
	return manticore.Document{
		ID:            order.ID,
		ClientName:    deref(order.ClientName),
		ClientSurname: deref(order.ClientSurname),
		Email:         deref(order.Email),
		CompanyName:   deref(order.CompanyName),
		Number:        order.Number,
		Articles:      strings.Join(articles, " "),
		CreatedAt:     order.CreatedAt.Unix(),
		Status:        order.Status,
		Currency:      order.Currency,
		Hash:          order.Hash,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
