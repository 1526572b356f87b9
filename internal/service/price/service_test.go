package price

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/pkg/errorbank"
)

type stubFetcher struct {
	source string
	resp   *dto.PriceResponse
	err    error
	calls  int
}

func (s *stubFetcher) Supports(source string) bool {
	return source == s.source
}

func (s *stubFetcher) Fetch(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
	s.calls++
	return s.resp, s.err
}

func newTestChain(sources []string, fetchers ...Fetcher) *Service {
	return &Service{
		fetchers: fetchers,
		sources:  sources,
		logger:   zap.NewNop(),
	}
}

func TestFetchPriceValidatesInput(t *testing.T) {
	svc := newTestChain([]string{"tile.expert"})
	for _, args := range [][3]string{
		{"", "collection", "article"},
		{"factory", "", "article"},
		{"factory", "collection", ""},
	} {
		_, err := svc.FetchPrice(context.Background(), args[0], args[1], args[2])
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	}
}

func TestFetchPriceFirstSourceWins(t *testing.T) {
	first := &stubFetcher{source: "tile.expert", resp: &dto.PriceResponse{Price: decimal.RequireFromString("12.50"), Currency: "EUR"}}
	second := &stubFetcher{source: "backup", resp: &dto.PriceResponse{Price: decimal.RequireFromString("99.99")}}

	svc := newTestChain([]string{"tile.expert", "backup"}, first, second)
	resp, err := svc.FetchPrice(context.Background(), "cersanit", "calm", "a123")
	require.NoError(t, err)
	assert.Equal(t, "12.5", resp.Price.String())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestFetchPriceContinuesPastFailure(t *testing.T) {
	first := &stubFetcher{source: "tile.expert", err: errors.New("timeout")}
	second := &stubFetcher{source: "backup", resp: &dto.PriceResponse{Price: decimal.RequireFromString("7.20"), Currency: "EUR"}}

	svc := newTestChain([]string{"tile.expert", "backup"}, first, second)
	resp, err := svc.FetchPrice(context.Background(), "cersanit", "calm", "a123")
	require.NoError(t, err)
	assert.Equal(t, "7.2", resp.Price.String())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestFetchPriceAllSourcesFail(t *testing.T) {
	first := &stubFetcher{source: "tile.expert", err: errors.New("timeout")}
	second := &stubFetcher{source: "backup", err: errors.New("refused")}

	svc := newTestChain([]string{"tile.expert", "backup"}, first, second)
	_, err := svc.FetchPrice(context.Background(), "cersanit", "calm", "a123")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnavailable, errorbank.From(err).Kind())
}

func TestFetchPricePropagatesNotFound(t *testing.T) {
	only := &stubFetcher{source: "tile.expert", err: errorbank.NotFound("article not found")}

	svc := newTestChain([]string{"tile.expert"}, only)
	_, err := svc.FetchPrice(context.Background(), "cersanit", "calm", "missing")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestFetchPriceNoConfiguredSources(t *testing.T) {
	svc := newTestChain(nil)
	_, err := svc.FetchPrice(context.Background(), "cersanit", "calm", "a123")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnavailable, errorbank.From(err).Kind())
}

func TestFetchPriceSkipsUnknownSource(t *testing.T) {
	known := &stubFetcher{source: "tile.expert", resp: &dto.PriceResponse{Price: decimal.NewFromInt(3)}}

	svc := newTestChain([]string{"mystery", "tile.expert"}, known)
	resp, err := svc.FetchPrice(context.Background(), "cersanit", "calm", "a123")
	require.NoError(t, err)
	assert.Equal(t, "3", resp.Price.String())
}
