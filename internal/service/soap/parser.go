// Package soap implements the legacy XML order intake: a permissive SOAP
// envelope parser and the matching response/fault writer. Partner systems
// send wildly varying envelopes, so parsing tolerates missing namespaces and
// both the nested items>item layout and bare repeated item elements.
package soap

import (
	"encoding/xml"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/pkg/errorbank"
)

// Parser converts SOAP createOrder envelopes into intake requests.
type Parser struct {
	logger *zap.Logger
}

// Module provides the SOAP parser to Fx.
var Module = fx.Provide(NewParser)

// NewParser wires a new Parser instance.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	CreateOrder *createOrderNode `xml:"createOrder"`
}

type createOrderNode struct {
	Name          string `xml:"name"`
	ClientName    string `xml:"clientName"`
	ClientSurname string `xml:"clientSurname"`
	Email         string `xml:"email"`
	CompanyName   string `xml:"companyName"`
	Description   string `xml:"description"`
	Currency      string `xml:"currency"`
	Locale        string `xml:"locale"`
	Measure       string `xml:"measure"`

	DeliveryType    int    `xml:"deliveryType"`
	DeliveryIndex   string `xml:"deliveryIndex"`
	DeliveryRegion  string `xml:"deliveryRegion"`
	DeliveryCity    string `xml:"deliveryCity"`
	DeliveryAddress string `xml:"deliveryAddress"`
	DeliveryPhone   string `xml:"deliveryPhone"`
	PayType         int    `xml:"payType"`

	Items     *itemsNode `xml:"items"`
	BareItems []itemNode `xml:"item"`
}

type itemsNode struct {
	Items []itemNode `xml:"item"`
}

type itemNode struct {
	ArticleID   int    `xml:"articleId"`
	ArticleCode string `xml:"articleCode"`
	ArticleName string `xml:"articleName"`
	Amount      string `xml:"amount"`
	Quantity    string `xml:"quantity"`
	Price       string `xml:"price"`
	Cost        string `xml:"cost"`
	Currency    string `xml:"currency"`
	Measure     string `xml:"measure"`

	DeliveryTimeMin string `xml:"deliveryTimeMin"`
	DeliveryTimeMax string `xml:"deliveryTimeMax"`
}

// Parse decodes a SOAP createOrder envelope into an order intake request.
// Items that fail to parse are dropped; an envelope yielding no usable item
// is rejected.
func (p *Parser) Parse(data []byte) (*dto.CreateOrderRequest, error) {
	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, errorbank.BadRequest("malformed SOAP envelope", errorbank.WithCause(err))
	}
	if env.Body.CreateOrder == nil {
		return nil, errorbank.BadRequest("missing createOrder element")
	}

	node := env.Body.CreateOrder
	req := &dto.CreateOrderRequest{
		Name:          strings.TrimSpace(node.Name),
		ClientName:    optional(node.ClientName),
		ClientSurname: optional(node.ClientSurname),
		Email:         optional(node.Email),
		CompanyName:   optional(node.CompanyName),
		Description:   optional(node.Description),
		Currency:      strings.TrimSpace(node.Currency),
		Locale:        strings.TrimSpace(node.Locale),
		Measure:       strings.TrimSpace(node.Measure),

		DeliveryType:    node.DeliveryType,
		DeliveryIndex:   optional(node.DeliveryIndex),
		DeliveryRegion:  optional(node.DeliveryRegion),
		DeliveryCity:    optional(node.DeliveryCity),
		DeliveryAddress: optional(node.DeliveryAddress),
		DeliveryPhone:   optional(node.DeliveryPhone),
		PayType:         node.PayType,
	}

	items := node.BareItems
	if node.Items != nil && len(node.Items.Items) > 0 {
		items = node.Items.Items
	}

	for i, item := range items {
		article, ok := p.parseItem(i, item)
		if !ok {
			continue
		}
		req.Articles = append(req.Articles, article)
	}

	if len(req.Articles) == 0 {
		return nil, errorbank.BadRequest("order must contain at least one valid item")
	}
	return req, nil
}

func (p *Parser) parseItem(index int, item itemNode) (dto.CreateOrderArticle, bool) {
	if item.ArticleID <= 0 {
		p.logger.Warn("dropping soap item without article id", zap.Int("index", index))
		return dto.CreateOrderArticle{}, false
	}
	// partner systems send either amount or quantity, price or cost
	rawAmount := firstNonEmpty(item.Amount, item.Quantity)
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil || !amount.IsPositive() {
		p.logger.Warn("dropping soap item with invalid amount",
			zap.Int("index", index), zap.String("amount", rawAmount))
		return dto.CreateOrderArticle{}, false
	}
	rawPrice := firstNonEmpty(item.Price, item.Cost)
	price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
	if err != nil || price.IsNegative() {
		p.logger.Warn("dropping soap item with invalid price",
			zap.Int("index", index), zap.String("price", rawPrice))
		return dto.CreateOrderArticle{}, false
	}

	return dto.CreateOrderArticle{
		ArticleID:       item.ArticleID,
		ArticleCode:     optional(item.ArticleCode),
		ArticleName:     optional(item.ArticleName),
		Amount:          amount,
		Price:           price,
		Currency:        optional(item.Currency),
		Measure:         optional(item.Measure),
		DeliveryTimeMin: optional(item.DeliveryTimeMin),
		DeliveryTimeMax: optional(item.DeliveryTimeMax),
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
