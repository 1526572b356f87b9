package dto

import "github.com/shopspring/decimal"

// OrderResponse is the immutable projection of a persisted order as exposed
// via transport layers. Decimal fields serialize as fixed-point strings,
// timestamps as RFC3339 strings, nullable columns as explicit nulls.
type OrderResponse struct {
	ID     int64   `json:"id"`
	UUID   string  `json:"uuid"`
	Hash   string  `json:"hash"`
	UserID *int64  `json:"user_id"`
	Token  string  `json:"token"`
	Number string  `json:"number"`
	Status int     `json:"status"`
	Email  *string `json:"email"`

	VATType   int     `json:"vat_type"`
	VATNumber *string `json:"vat_number"`
	Discount  *int    `json:"discount"`

	DeliveryPrice           decimal.NullDecimal `json:"delivery_price"`
	DeliveryType            int                 `json:"delivery_type"`
	DeliveryIndex           *string             `json:"delivery_index"`
	DeliveryCountry         *int                `json:"delivery_country"`
	DeliveryRegion          *string             `json:"delivery_region"`
	DeliveryCity            *string             `json:"delivery_city"`
	DeliveryAddress         *string             `json:"delivery_address"`
	DeliveryPhone           *string             `json:"delivery_phone"`
	DeliveryApartmentOffice *string             `json:"delivery_apartment_office"`

	ClientName    *string `json:"client_name"`
	ClientSurname *string `json:"client_surname"`
	CompanyName   *string `json:"company_name"`

	PayType          int     `json:"pay_type"`
	PayDateExecution *string `json:"pay_date_execution"`
	ProposedDate     *string `json:"proposed_date"`
	ShipDate         *string `json:"ship_date"`
	TrackingNumber   *string `json:"tracking_number"`
	ManagerName      *string `json:"manager_name"`
	ManagerEmail     *string `json:"manager_email"`

	Locale   string          `json:"locale"`
	CurRate  decimal.Decimal `json:"cur_rate"`
	Currency string          `json:"currency"`
	Measure  string          `json:"measure"`

	Name        string  `json:"name"`
	Description *string `json:"description"`

	WarehouseData map[string]any      `json:"warehouse_data"`
	AddressEqual  bool                `json:"address_equal"`
	AcceptPay     bool                `json:"accept_pay"`
	WeightGross   decimal.NullDecimal `json:"weight_gross"`
	PaymentEuro   bool                `json:"payment_euro"`
	SpecPrice     bool                `json:"spec_price"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	Articles []OrderArticleResponse `json:"articles"`
}

// OrderArticleResponse projects a single line item, including the derived
// (non-stored) totals.
type OrderArticleResponse struct {
	ID          int64   `json:"id"`
	ArticleID   int     `json:"article_id"`
	ArticleCode *string `json:"article_code"`
	ArticleName *string `json:"article_name"`

	Amount   decimal.Decimal     `json:"amount"`
	Price    decimal.Decimal     `json:"price"`
	PriceEur decimal.NullDecimal `json:"price_eur"`
	Currency *string             `json:"currency"`
	Measure  *string             `json:"measure"`

	DeliveryTimeMin    *string `json:"delivery_time_min"`
	DeliveryTimeMax    *string `json:"delivery_time_max"`
	DeliveryWindowDays *int    `json:"delivery_window_days"`

	Weight         decimal.NullDecimal `json:"weight"`
	PackagingCount decimal.NullDecimal `json:"packaging_count"`
	Pallet         decimal.NullDecimal `json:"pallet"`
	Packaging      decimal.NullDecimal `json:"packaging"`
	SwimmingPool   bool                `json:"swimming_pool"`

	TotalPrice  decimal.Decimal     `json:"total_price"`
	TotalWeight decimal.NullDecimal `json:"total_weight"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateOrderRequest is the REST/SOAP intake payload for a new order.
type CreateOrderRequest struct {
	Name          string  `json:"name"`
	ClientName    *string `json:"client_name"`
	ClientSurname *string `json:"client_surname"`
	Email         *string `json:"email"`
	CompanyName   *string `json:"company_name"`
	Description   *string `json:"description"`
	Currency      string  `json:"currency"`
	Locale        string  `json:"locale"`
	Measure       string  `json:"measure"`
	Discount      *int    `json:"discount"`

	DeliveryPrice   decimal.NullDecimal `json:"delivery_price"`
	DeliveryType    int                 `json:"delivery_type"`
	DeliveryIndex   *string             `json:"delivery_index"`
	DeliveryRegion  *string             `json:"delivery_region"`
	DeliveryCity    *string             `json:"delivery_city"`
	DeliveryAddress *string             `json:"delivery_address"`
	DeliveryPhone   *string             `json:"delivery_phone"`
	PayType         int                 `json:"pay_type"`

	Articles []CreateOrderArticle `json:"articles"`
}

// CreateOrderArticle is one requested line item.
type CreateOrderArticle struct {
	ArticleID   int     `json:"article_id"`
	ArticleCode *string `json:"article_code"`
	ArticleName *string `json:"article_name"`

	Amount   decimal.Decimal     `json:"amount"`
	Price    decimal.Decimal     `json:"price"`
	PriceEur decimal.NullDecimal `json:"price_eur"`
	Currency *string             `json:"currency"`
	Measure  *string             `json:"measure"`

	DeliveryTimeMin *string `json:"delivery_time_min"`
	DeliveryTimeMax *string `json:"delivery_time_max"`

	Weight         decimal.NullDecimal `json:"weight"`
	PackagingCount decimal.NullDecimal `json:"packaging_count"`
	Pallet         decimal.NullDecimal `json:"pallet"`
	Packaging      decimal.NullDecimal `json:"packaging"`
	SwimmingPool   bool                `json:"swimming_pool"`
}

// AggregationBucket is one aggregation group: the truncated creation
// timestamp key and the number of orders that fell into it.
type AggregationBucket struct {
	Group string `json:"group"`
	Count int64  `json:"count"`
}
