package dto

import "github.com/shopspring/decimal"

// PriceResponse is a fetched (or cached) article price projection.
type PriceResponse struct {
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Factory    string          `json:"factory"`
	Collection string          `json:"collection"`
	Article    string          `json:"article"`
	FetchedAt  string          `json:"fetched_at"`
	SourceURL  string          `json:"source_url"`
}
