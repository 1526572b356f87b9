package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order status values. Stored as smallint, never as free text.
const (
	StatusPending   = 1
	StatusConfirmed = 2
	StatusShipped   = 3
	StatusDelivered = 4
	StatusCancelled = 5
)

// VAT types.
const (
	VATTypeNone       = 0
	VATTypeIndividual = 1
	VATTypeCompany    = 2
)

// Delivery types.
const (
	DeliveryTypeStandard = 0
	DeliveryTypeExpress  = 1
	DeliveryTypePickup   = 2
)

// Payment types.
const (
	PayTypeCard         = 0
	PayTypeBankTransfer = 1
	PayTypeCash         = 2
	PayTypePayPal       = 3
)

// ValidStatus reports whether s is one of the five defined order statuses.
func ValidStatus(s int) bool {
	return s >= StatusPending && s <= StatusCancelled
}

// Order represents a purchase order stored in the relational database.
// UUID and hash are assigned once at creation and are immutable; both are
// unique across all orders. Number is the human-facing sequential
// identifier (ORD-<year>-<seq>) and is never recomputed.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID     int64   `bun:",pk,autoincrement"`
	UUID   string  `bun:"uuid"`
	Hash   string  `bun:"hash"`
	UserID *int64  `bun:"user_id"`
	Token  string  `bun:"token"`
	Number string  `bun:"number,nullzero"`
	Status int     `bun:"status"`
	Email  *string `bun:"email"`

	VATType   int     `bun:"vat_type"`
	VATNumber *string `bun:"vat_number"`
	Discount  *int    `bun:"discount"`

	DeliveryPrice           decimal.NullDecimal `bun:"delivery_price"`
	DeliveryType            int                 `bun:"delivery_type"`
	DeliveryIndex           *string             `bun:"delivery_index"`
	DeliveryCountry         *int                `bun:"delivery_country"`
	DeliveryRegion          *string             `bun:"delivery_region"`
	DeliveryCity            *string             `bun:"delivery_city"`
	DeliveryAddress         *string             `bun:"delivery_address"`
	DeliveryPhone           *string             `bun:"delivery_phone"`
	DeliveryApartmentOffice *string             `bun:"delivery_apartment_office"`

	ClientName    *string `bun:"client_name"`
	ClientSurname *string `bun:"client_surname"`
	CompanyName   *string `bun:"company_name"`

	PayType          int        `bun:"pay_type"`
	PayDateExecution *time.Time `bun:"pay_date_execution"`
	ProposedDate     *time.Time `bun:"proposed_date"`
	ShipDate         *time.Time `bun:"ship_date"`
	TrackingNumber   *string    `bun:"tracking_number"`
	ManagerName      *string    `bun:"manager_name"`
	ManagerEmail     *string    `bun:"manager_email"`

	Locale   string          `bun:"locale"`
	CurRate  decimal.Decimal `bun:"cur_rate"`
	Currency string          `bun:"currency"`
	Measure  string          `bun:"measure"`

	Name        string  `bun:"name"`
	Description *string `bun:"description"`

	WarehouseData map[string]any      `bun:"warehouse_data,type:json,nullzero"`
	AddressEqual  bool                `bun:"address_equal"`
	AcceptPay     bool                `bun:"accept_pay"`
	WeightGross   decimal.NullDecimal `bun:"weight_gross"`
	PaymentEuro   bool                `bun:"payment_euro"`
	SpecPrice     bool                `bun:"spec_price"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`

	Articles []*OrderArticle `bun:"rel:has-many,join:id=order_id"`
}

// OrderArticle is a single line item owned by exactly one order. Rows are
// deleted together with their parent (cascade FK).
type OrderArticle struct {
	bun.BaseModel `bun:"table:orders_article"`

	ID      int64 `bun:",pk,autoincrement"`
	OrderID int64 `bun:"order_id"`

	ArticleID   int     `bun:"article_id"`
	ArticleCode *string `bun:"article_code"`
	ArticleName *string `bun:"article_name"`

	Amount   decimal.Decimal     `bun:"amount"`
	Price    decimal.Decimal     `bun:"price"`
	PriceEur decimal.NullDecimal `bun:"price_eur"`
	Currency *string             `bun:"currency"`
	Measure  *string             `bun:"measure"`

	DeliveryTimeMin *time.Time `bun:"delivery_time_min"`
	DeliveryTimeMax *time.Time `bun:"delivery_time_max"`

	Weight         decimal.NullDecimal `bun:"weight"`
	PackagingCount decimal.NullDecimal `bun:"packaging_count"`
	Pallet         decimal.NullDecimal `bun:"pallet"`
	Packaging      decimal.NullDecimal `bun:"packaging"`
	SwimmingPool   bool                `bun:"swimming_pool"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}

// TotalPrice is the derived line total: price * amount. Not stored.
func (a *OrderArticle) TotalPrice() decimal.Decimal {
	return a.Price.Mul(a.Amount)
}

// TotalWeight is weight * amount, or invalid when weight is absent.
func (a *OrderArticle) TotalWeight() decimal.NullDecimal {
	if !a.Weight.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: a.Weight.Decimal.Mul(a.Amount), Valid: true}
}

// DeliveryWindowDays is the span of the delivery window in whole days, or
// nil when either bound is absent.
func (a *OrderArticle) DeliveryWindowDays() *int {
	if a.DeliveryTimeMin == nil || a.DeliveryTimeMax == nil {
		return nil
	}
	days := int(a.DeliveryTimeMax.Sub(*a.DeliveryTimeMin).Hours() / 24)
	return &days
}
