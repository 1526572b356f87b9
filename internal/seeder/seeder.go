package seeder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/database"
	"github.com/tileware/orderhub/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example orders with line items if they are missing. Reruns
// are no-ops thanks to the unique order number.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()

	samples := []struct {
		number string
		status int
		client string
		email  string
		items  []entity.OrderArticle
	}{
		{
			number: "ORD-2024-001",
			status: entity.StatusConfirmed,
			client: "John",
			email:  "john@example.com",
			items: []entity.OrderArticle{
				{ArticleID: 100, Amount: decimal.RequireFromString("2.5"), Price: decimal.RequireFromString("19.90")},
				{ArticleID: 101, Amount: decimal.NewFromInt(1), Price: decimal.RequireFromString("5.00")},
			},
		},
		{
			number: "ORD-2024-002",
			status: entity.StatusPending,
			client: "Marie",
			email:  "marie@example.com",
			items: []entity.OrderArticle{
				{ArticleID: 102, Amount: decimal.NewFromInt(4), Price: decimal.RequireFromString("12.40")},
			},
		},
	}

	var seeded int
	for _, sample := range samples {
		order := &entity.Order{
			UUID:       uuid.NewString(),
			Hash:       seedHash(sample.number),
			Token:      seedHash("token_" + sample.number)[:32],
			Number:     sample.number,
			Status:     sample.status,
			Name:       "Sample order " + sample.number,
			ClientName: ptr(sample.client),
			Email:      ptr(sample.email),
			Locale:     "en",
			CurRate:    decimal.NewFromInt(1),
			Currency:   "EUR",
			Measure:    "m",
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		res, err := s.db.NewInsert().Model(order).
			On("CONFLICT (number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			continue
		}
		seeded++

		for i := range sample.items {
			item := sample.items[i]
			item.OrderID = order.ID
			item.CreatedAt = now
			item.UpdatedAt = now
			if _, err := s.db.NewInsert().Model(&item).Exec(ctx); err != nil {
				return err
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", seeded))
	}
	return nil
}

func seedHash(input string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("seed_%s", input)))
	return hex.EncodeToString(sum[:])
}

func ptr(s string) *string {
	return &s
}
