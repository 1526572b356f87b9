package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/cache"
	"github.com/tileware/orderhub/internal/config"
	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/internal/entity"
	"github.com/tileware/orderhub/internal/messaging"
	repo "github.com/tileware/orderhub/internal/repository/order"
	"github.com/tileware/orderhub/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/tileware/orderhub/service/order")

// Canonical textual formats for all serialized timestamps.
const (
	timestampFormat = time.RFC3339
	dateFormat      = "2006-01-02"
)

// Repository is the storage surface the service depends on.
type Repository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	FindByIDOrHash(ctx context.Context, identifier string) (*entity.Order, error)
	UpdateStatus(ctx context.Context, id int64, status int, updatedAt time.Time) error
	NextSequence(ctx context.Context, year int) (int64, error)
	Aggregate(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]repo.Bucket, error)
	TotalAggregatedCount(ctx context.Context, groupBy string, f repo.Filter) (int, error)
}

// Service encapsulates business logic around orders.
type Service struct {
	repo      Repository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Create validates the request, assigns identity (uuid, hash, token, number)
// and persists the order with all articles atomically.
func (s *Service) Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order, err := s.buildOrder(ctx, req, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequence error")
		return nil, errorbank.Internal("failed to assign order number", errorbank.WithCause(err))
	}

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}

	s.publishOrderCreated(ctx, order)

	resp := s.EntityToDTO(order)
	return &resp, nil
}

// buildOrder maps the request onto a fresh entity with assigned identity.
func (s *Service) buildOrder(ctx context.Context, req dto.CreateOrderRequest, now time.Time) (*entity.Order, error) {
	seq, err := s.repo.NextSequence(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	orderUUID := uuid.NewString()
	order := &entity.Order{
		UUID:   orderUUID,
		Hash:   newOrderHash(now, orderUUID),
		Token:  newToken(),
		Number: fmt.Sprintf("ORD-%d-%03d", now.Year(), seq),
		Status: entity.StatusPending,

		Name:          req.Name,
		ClientName:    req.ClientName,
		ClientSurname: req.ClientSurname,
		Email:         req.Email,
		CompanyName:   req.CompanyName,
		Description:   req.Description,
		Discount:      req.Discount,

		DeliveryPrice:   req.DeliveryPrice,
		DeliveryType:    req.DeliveryType,
		DeliveryIndex:   req.DeliveryIndex,
		DeliveryRegion:  req.DeliveryRegion,
		DeliveryCity:    req.DeliveryCity,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryPhone:   req.DeliveryPhone,
		PayType:         req.PayType,

		Locale:       defaultString(req.Locale, "en"),
		CurRate:      decimal.NewFromInt(1),
		Currency:     defaultString(req.Currency, "EUR"),
		Measure:      defaultString(req.Measure, "m"),
		AddressEqual: true,

		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, a := range req.Articles {
		article := &entity.OrderArticle{
			ArticleID:      a.ArticleID,
			ArticleCode:    a.ArticleCode,
			ArticleName:    a.ArticleName,
			Amount:         a.Amount,
			Price:          a.Price,
			PriceEur:       a.PriceEur,
			Currency:       a.Currency,
			Measure:        a.Measure,
			Weight:         a.Weight,
			PackagingCount: a.PackagingCount,
			Pallet:         a.Pallet,
			Packaging:      a.Packaging,
			SwimmingPool:   a.SwimmingPool,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		article.DeliveryTimeMin = parseDate(a.DeliveryTimeMin)
		article.DeliveryTimeMax = parseDate(a.DeliveryTimeMax)
		order.Articles = append(order.Articles, article)
	}
	return order, nil
}

func validateCreate(req dto.CreateOrderRequest) error {
	if req.Name == "" {
		return errorbank.BadRequest("order name is required")
	}
	if len(req.Articles) == 0 {
		return errorbank.BadRequest("at least one article is required")
	}
	for i, a := range req.Articles {
		if a.ArticleID <= 0 {
			return errorbank.BadRequest("article_id must be positive", errorbank.WithDetail("index", i))
		}
		if !a.Amount.IsPositive() {
			return errorbank.BadRequest("article amount must be positive", errorbank.WithDetail("index", i))
		}
		if a.Price.IsNegative() {
			return errorbank.BadRequest("article price must not be negative", errorbank.WithDetail("index", i))
		}
	}
	return nil
}

// Get retrieves an order by numeric id or hash, consulting cache when
// available.
func (s *Service) Get(ctx context.Context, identifier string) (*dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.identifier", identifier)))
	defer span.End()

	if order, err := s.getFromCache(ctx, identifier); err == nil {
		resp := s.EntityToDTO(order)
		return &resp, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("identifier", identifier), zap.Error(err))
	}

	order, err := s.repo.FindByIDOrHash(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}

	resp := s.EntityToDTO(order)
	return &resp, nil
}

// GetByID retrieves one order by primary key; the search pipeline uses this
// to hydrate remote hits.
func (s *Service) GetByID(ctx context.Context, id int64) (*dto.OrderResponse, error) {
	return s.Get(ctx, fmt.Sprintf("%d", id))
}

// UpdateStatus transitions an order to a new status, touching only status
// and updated_at.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status int) (*dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int("order.status", status),
	))
	defer span.End()

	if !entity.ValidStatus(status) {
		return nil, errorbank.BadRequest("status must be one of: 1, 2, 3, 4, 5")
	}

	if err := s.repo.UpdateStatus(ctx, id, status, time.Now().UTC()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errorbank.Internal("failed to reload order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}

	resp := s.EntityToDTO(order)
	return &resp, nil
}

// Aggregate groups orders by truncated creation timestamp and returns the
// requested page of buckets plus the unpaginated distinct-group total.
func (s *Service) Aggregate(ctx context.Context, groupBy string, page, perPage int, f repo.Filter) ([]dto.AggregationBucket, int, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Aggregate", trace.WithAttributes(attribute.String("aggregate.group_by", groupBy)))
	defer span.End()

	buckets, err := s.repo.Aggregate(ctx, groupBy, page, perPage, f)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidGroupBy) {
			return nil, 0, errorbank.BadRequest(err.Error())
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, 0, errorbank.Internal("failed to aggregate orders", errorbank.WithCause(err))
	}

	total, err := s.repo.TotalAggregatedCount(ctx, groupBy, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, 0, errorbank.Internal("failed to count aggregated orders", errorbank.WithCause(err))
	}

	out := make([]dto.AggregationBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, dto.AggregationBucket{Group: b.Group, Count: b.Count})
	}
	return out, total, nil
}

// EntityToDTO converts a persisted order aggregate into its immutable
// response projection.
func (s *Service) EntityToDTO(order *entity.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:     order.ID,
		UUID:   order.UUID,
		Hash:   order.Hash,
		UserID: order.UserID,
		Token:  order.Token,
		Number: order.Number,
		Status: order.Status,
		Email:  order.Email,

		VATType:   order.VATType,
		VATNumber: order.VATNumber,
		Discount:  order.Discount,

		DeliveryPrice:           order.DeliveryPrice,
		DeliveryType:            order.DeliveryType,
		DeliveryIndex:           order.DeliveryIndex,
		DeliveryCountry:         order.DeliveryCountry,
		DeliveryRegion:          order.DeliveryRegion,
		DeliveryCity:            order.DeliveryCity,
		DeliveryAddress:         order.DeliveryAddress,
		DeliveryPhone:           order.DeliveryPhone,
		DeliveryApartmentOffice: order.DeliveryApartmentOffice,

		ClientName:    order.ClientName,
		ClientSurname: order.ClientSurname,
		CompanyName:   order.CompanyName,

		PayType:          order.PayType,
		PayDateExecution: formatTime(order.PayDateExecution),
		ProposedDate:     formatTime(order.ProposedDate),
		ShipDate:         formatTime(order.ShipDate),
		TrackingNumber:   order.TrackingNumber,
		ManagerName:      order.ManagerName,
		ManagerEmail:     order.ManagerEmail,

		Locale:   order.Locale,
		CurRate:  order.CurRate,
		Currency: order.Currency,
		Measure:  order.Measure,

		Name:        order.Name,
		Description: order.Description,

		WarehouseData: order.WarehouseData,
		AddressEqual:  order.AddressEqual,
		AcceptPay:     order.AcceptPay,
		WeightGross:   order.WeightGross,
		PaymentEuro:   order.PaymentEuro,
		SpecPrice:     order.SpecPrice,

		CreatedAt: order.CreatedAt.Format(timestampFormat),
		UpdatedAt: order.UpdatedAt.Format(timestampFormat),

		Articles: make([]dto.OrderArticleResponse, 0, len(order.Articles)),
	}

	for _, a := range order.Articles {
		resp.Articles = append(resp.Articles, dto.OrderArticleResponse{
			ID:          a.ID,
			ArticleID:   a.ArticleID,
			ArticleCode: a.ArticleCode,
			ArticleName: a.ArticleName,

			Amount:   a.Amount,
			Price:    a.Price,
			PriceEur: a.PriceEur,
			Currency: a.Currency,
			Measure:  a.Measure,

			DeliveryTimeMin:    formatDate(a.DeliveryTimeMin),
			DeliveryTimeMax:    formatDate(a.DeliveryTimeMax),
			DeliveryWindowDays: a.DeliveryWindowDays(),

			Weight:         a.Weight,
			PackagingCount: a.PackagingCount,
			Pallet:         a.Pallet,
			Packaging:      a.Packaging,
			SwimmingPool:   a.SwimmingPool,

			TotalPrice:  a.TotalPrice(),
			TotalWeight: a.TotalWeight(),

			CreatedAt: a.CreatedAt.Format(timestampFormat),
			UpdatedAt: a.UpdatedAt.Format(timestampFormat),
		})
	}
	return resp
}

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		ID:        order.ID,
		UUID:      order.UUID,
		Number:    order.Number,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order created", zap.Error(err))
	}
}

func (s *Service) cacheKey(identifier string) string {
	return "orders:" + identifier
}

func (s *Service) getFromCache(ctx context.Context, identifier string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(identifier))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(fmt.Sprintf("%d", order.ID)), bytes, s.cacheTTL)
}

// newOrderHash derives the opaque order identifier from a high-resolution
// clock plus the order's uuid as salt. 64 hex chars; collision treated as
// infeasible.
func newOrderHash(now time.Time, salt string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("order_%d_%s", now.UnixNano(), salt)))
	return hex.EncodeToString(sum[:])
}

// newToken produces the 32-char access token carried by each order.
func newToken() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])[:32]
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(timestampFormat)
	return &v
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(dateFormat)
	return &v
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(dateFormat, *s)
	if err != nil {
		return nil
	}
	return &t
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Number    string    `json:"number"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
