package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tileware/orderhub/internal/entity"
)

// ErrInvalidGroupBy is returned before any storage access when the grouping
// granularity is not one of day, month, year.
var ErrInvalidGroupBy = errors.New("group_by must be one of: day, month, year")

// Filter holds the optional, conjunctive aggregation predicates. All bounds
// compare against the full creation timestamp, not the truncated group key.
type Filter struct {
	Status   *int
	FromDate *time.Time
	ToDate   *time.Time
	UserID   *int64
}

// Bucket is one aggregation group row scanned from the raw query.
type Bucket struct {
	Group string `bun:"group_key"`
	Count int64  `bun:"cnt"`
}

// groupExpr maps a grouping granularity onto the dialect's timestamp
// truncation expression.
func groupExpr(name dialect.Name, groupBy string) (string, error) {
	switch groupBy {
	case "day":
		switch name {
		case dialect.PG:
			return "to_char(created_at, 'YYYY-MM-DD')", nil
		case dialect.MySQL:
			return "DATE(created_at)", nil
		default:
			return "strftime('%Y-%m-%d', created_at)", nil
		}
	case "month":
		switch name {
		case dialect.PG:
			return "to_char(created_at, 'YYYY-MM')", nil
		case dialect.MySQL:
			return "DATE_FORMAT(created_at, '%Y-%m')", nil
		default:
			return "strftime('%Y-%m', created_at)", nil
		}
	case "year":
		switch name {
		case dialect.PG:
			return "to_char(created_at, 'YYYY')", nil
		case dialect.MySQL:
			return "DATE_FORMAT(created_at, '%Y')", nil
		default:
			return "strftime('%Y', created_at)", nil
		}
	default:
		return "", ErrInvalidGroupBy
	}
}

// filterSQL renders the conjunctive WHERE clause and its positional args.
func filterSQL(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	}
	if f.FromDate != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.FromDate)
	}
	if f.ToDate != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *f.ToDate)
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Aggregate groups orders by truncated creation timestamp under the filter
// predicates and paginates over the groups, most recent period first.
func (r *Repository) Aggregate(ctx context.Context, groupBy string, page, perPage int, f Filter) ([]Bucket, error) {
	expr, err := groupExpr(r.reader.Dialect().Name(), groupBy)
	if err != nil {
		return nil, err
	}

	ctx, span := repoTracer.Start(ctx, "OrderRepository.Aggregate", trace.WithAttributes(
		attribute.String("aggregate.group_by", groupBy),
		attribute.Int("aggregate.page", page),
		attribute.Int("aggregate.per_page", perPage),
	))
	defer span.End()

	where, args := filterSQL(f)
	offset := (page - 1) * perPage

	query := fmt.Sprintf(
		"SELECT %s AS group_key, COUNT(id) AS cnt FROM orders%s GROUP BY %s ORDER BY group_key DESC LIMIT ? OFFSET ?",
		expr, where, expr,
	)
	args = append(args, perPage, offset)

	buckets := make([]Bucket, 0, perPage)
	if err := r.reader.NewRaw(query, args...).Scan(ctx, &buckets); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return nil, err
	}
	return buckets, nil
}

// TotalAggregatedCount returns the number of distinct group keys matching
// the same filters, independent of pagination. Callers derive total pages as
// ceil(total / perPage).
func (r *Repository) TotalAggregatedCount(ctx context.Context, groupBy string, f Filter) (int, error) {
	expr, err := groupExpr(r.reader.Dialect().Name(), groupBy)
	if err != nil {
		return 0, err
	}

	ctx, span := repoTracer.Start(ctx, "OrderRepository.TotalAggregatedCount", trace.WithAttributes(
		attribute.String("aggregate.group_by", groupBy),
	))
	defer span.End()

	where, args := filterSQL(f)
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT %s FROM orders%s GROUP BY %s) t",
		expr, where, expr,
	)

	var total int
	if err := r.reader.NewRaw(query, args...).Scan(ctx, &total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate count failed")
		return 0, err
	}
	return total, nil
}

// searchColumns are the fields the fallback substring search matches against.
var searchColumns = []string{"client_name", "client_surname", "email", "company_name", "number", "hash"}

func applySearchPredicate(q *bun.SelectQuery, query string) *bun.SelectQuery {
	pattern := "%" + strings.ToLower(query) + "%"
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, col := range searchColumns {
			q = q.WhereOr("LOWER(o."+col+") LIKE ?", pattern)
		}
		return q
	})
}

// Search performs the case-insensitive substring fallback search across the
// client, company, number, and hash fields, newest orders first.
func (r *Repository) Search(ctx context.Context, query string, page, perPage int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Search", trace.WithAttributes(
		attribute.Int("search.page", page),
		attribute.Int("search.per_page", perPage),
	))
	defer span.End()

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).Relation("Articles")
	q = applySearchPredicate(q, query).
		OrderExpr("o.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage)

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	return orders, nil
}

// TotalSearchCount counts all orders matching the identical fallback
// predicate, without pagination.
func (r *Repository) TotalSearchCount(ctx context.Context, query string) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.TotalSearchCount")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Order)(nil))
	total, err := applySearchPredicate(q, query).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search count failed")
		return 0, err
	}
	return total, nil
}

// NextSequence atomically increments and returns the per-year order number
// sequence. The counter row replaces the old read-then-increment over the
// order count, which raced under concurrent creation.
func (r *Repository) NextSequence(ctx context.Context, year int) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.NextSequence", trace.WithAttributes(attribute.Int("sequence.year", year)))
	defer span.End()

	var seq int64
	var err error
	switch r.writer.Dialect().Name() {
	case dialect.MySQL:
		err = r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO order_sequences (year, seq) VALUES (?, LAST_INSERT_ID(1)) "+
					"ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)", year); err != nil {
				return err
			}
			return tx.NewRaw("SELECT LAST_INSERT_ID()").Scan(ctx, &seq)
		})
	default:
		err = r.writer.NewRaw(
			"INSERT INTO order_sequences (year, seq) VALUES (?, 1) "+
				"ON CONFLICT (year) DO UPDATE SET seq = order_sequences.seq + 1 RETURNING seq", year,
		).Scan(ctx, &seq)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequence failed")
		return 0, err
	}
	return seq, nil
}
