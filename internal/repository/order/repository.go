package order

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tileware/orderhub/internal/database"
	"github.com/tileware/orderhub/internal/entity"
)

var repoTracer = otel.Tracer("github.com/tileware/orderhub/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders and their articles.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order together with all its articles as a single
// transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.number", order.Number)))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for _, article := range order.Articles {
			article.OrderID = order.ID
		}
		if len(order.Articles) > 0 {
			if _, err := tx.NewInsert().Model(&order.Articles).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its articles by primary key, using the read
// replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Articles").
		Where("o.id = ?", id).
		Scan(ctx)
	return checkFound(span, order, err)
}

// GetByHash fetches an order by its opaque hash.
func (r *Repository) GetByHash(ctx context.Context, hash string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByHash")
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Articles").
		Where("o.hash = ?", hash).
		Scan(ctx)
	return checkFound(span, order, err)
}

// FindByIDOrHash resolves a numeric identifier as a primary key and anything
// else as a hash.
func (r *Repository) FindByIDOrHash(ctx context.Context, identifier string) (*entity.Order, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return r.GetByID(ctx, id)
	}
	return r.GetByHash(ctx, identifier)
}

// GetByUUID fetches an order by UUID.
func (r *Repository) GetByUUID(ctx context.Context, uuid string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByUUID")
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Articles").
		Where("o.uuid = ?", uuid).
		Scan(ctx)
	return checkFound(span, order, err)
}

// GetByNumber fetches an order by its human-facing number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Articles").
		Where("o.number = ?", number).
		Scan(ctx)
	return checkFound(span, order, err)
}

// UpdateStatus mutates status and updated_at only.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status int, updatedAt time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int("order.status", status),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", updatedAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// CountAll returns the total number of orders.
func (r *Repository) CountAll(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
}

// CountByStatus returns the number of orders holding the given status.
func (r *Repository) CountByStatus(ctx context.Context, status int) (int, error) {
	return r.reader.NewSelect().Model((*entity.Order)(nil)).
		Where("status = ?", status).
		Count(ctx)
}

// RecentOrders returns up to limit orders ordered by creation time descending.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]*entity.Order, error) {
	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Articles").
		OrderExpr("o.created_at DESC").
		Limit(limit).
		Scan(ctx)
	return orders, err
}

// ListBatch pages through all orders in id order; used by the index rebuild.
func (r *Repository) ListBatch(ctx context.Context, offset, limit int) ([]*entity.Order, error) {
	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Articles").
		OrderExpr("o.id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	return orders, err
}

func checkFound(span trace.Span, order *entity.Order, err error) (*entity.Order, error) {
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}
