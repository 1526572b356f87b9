package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/pkg/errorbank"
)

func newTestParser() *Parser {
	return NewParser(zap.NewNop())
}

const validEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <createOrder>
      <name>Bathroom renovation</name>
      <clientName>John</clientName>
      <clientSurname>Smith</clientSurname>
      <email>john@example.com</email>
      <currency>EUR</currency>
      <items>
        <item>
          <articleId>100</articleId>
          <articleCode>FLR-100</articleCode>
          <amount>2.5</amount>
          <price>19.90</price>
        </item>
        <item>
          <articleId>101</articleId>
          <amount>1</amount>
          <price>5.00</price>
        </item>
      </items>
    </createOrder>
  </soap:Body>
</soap:Envelope>`

func TestParseValidEnvelope(t *testing.T) {
	req, err := newTestParser().Parse([]byte(validEnvelope))
	require.NoError(t, err)

	assert.Equal(t, "Bathroom renovation", req.Name)
	require.NotNil(t, req.ClientName)
	assert.Equal(t, "John", *req.ClientName)
	assert.Equal(t, "EUR", req.Currency)

	require.Len(t, req.Articles, 2)
	assert.Equal(t, 100, req.Articles[0].ArticleID)
	assert.Equal(t, "2.5", req.Articles[0].Amount.String())
	assert.Equal(t, "19.9", req.Articles[0].Price.String())
	require.NotNil(t, req.Articles[0].ArticleCode)
	assert.Equal(t, "FLR-100", *req.Articles[0].ArticleCode)
	assert.Nil(t, req.Articles[1].ArticleCode)
}

func TestParseBareItemsFallback(t *testing.T) {
	payload := `<Envelope><Body><createOrder>
      <name>Fallback layout</name>
      <item><articleId>7</articleId><amount>1</amount><price>2.00</price></item>
      <item><articleId>8</articleId><amount>3</amount><price>4.00</price></item>
    </createOrder></Body></Envelope>`

	req, err := newTestParser().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, req.Articles, 2)
	assert.Equal(t, 7, req.Articles[0].ArticleID)
	assert.Equal(t, 8, req.Articles[1].ArticleID)
}

func TestParseQuantityAndCostAliases(t *testing.T) {
	payload := `<Envelope><Body><createOrder>
      <name>Alias layout</name>
      <items>
        <item><articleId>5</articleId><quantity>3</quantity><cost>9.99</cost></item>
      </items>
    </createOrder></Body></Envelope>`

	req, err := newTestParser().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, req.Articles, 1)
	assert.Equal(t, "3", req.Articles[0].Amount.String())
	assert.Equal(t, "9.99", req.Articles[0].Price.String())
}

func TestParseDropsInvalidItems(t *testing.T) {
	payload := `<Envelope><Body><createOrder>
      <name>Partial</name>
      <items>
        <item><articleId>0</articleId><amount>1</amount><price>2.00</price></item>
        <item><articleId>9</articleId><amount>not-a-number</amount><price>2.00</price></item>
        <item><articleId>10</articleId><amount>-1</amount><price>2.00</price></item>
        <item><articleId>11</articleId><amount>2</amount><price>3.50</price></item>
      </items>
    </createOrder></Body></Envelope>`

	req, err := newTestParser().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, req.Articles, 1)
	assert.Equal(t, 11, req.Articles[0].ArticleID)
}

func TestParseRejectsEnvelopeWithoutUsableItems(t *testing.T) {
	payload := `<Envelope><Body><createOrder>
      <name>Empty</name>
      <items>
        <item><articleId>0</articleId><amount>1</amount><price>2.00</price></item>
      </items>
    </createOrder></Body></Envelope>`

	_, err := newTestParser().Parse([]byte(payload))
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestParseRejectsMissingCreateOrder(t *testing.T) {
	_, err := newTestParser().Parse([]byte(`<Envelope><Body></Body></Envelope>`))
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestParseRejectsMalformedXML(t *testing.T) {
	_, err := newTestParser().Parse([]byte(`<Envelope><Body>`))
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestSuccessResponse(t *testing.T) {
	out, err := SuccessResponse(42, "abc123")
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<result>success</result>")
	assert.Contains(t, s, "<orderId>42</orderId>")
	assert.Contains(t, s, "<orderHash>abc123</orderHash>")
}

func TestFaultResponse(t *testing.T) {
	out, err := FaultResponse(true, "bad payload")
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, s, "<faultstring>bad payload</faultstring>")
	assert.Contains(t, s, "<errorMessage>bad payload</errorMessage>")

	out, err = FaultResponse(false, "boom")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<faultcode>soap:Server</faultcode>")
}
