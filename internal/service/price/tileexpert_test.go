package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/cache"
	"github.com/tileware/orderhub/pkg/errorbank"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func newTestFetcher(baseURL string, store cache.Store) *TileExpertFetcher {
	return &TileExpertFetcher{
		client:    &http.Client{Timeout: time.Second},
		cache:     store,
		cacheTTL:  time.Minute,
		baseURL:   baseURL,
		userAgent: "test-agent",
		logger:    zap.NewNop(),
	}
}

func TestTileExpertFetchParsesPrice(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/fr/tile/cersanit/calm/a/a123", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<html><span data-price="24,90">24,90 €</span></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL, newMemoryStore())
	resp, err := f.Fetch(context.Background(), "cersanit", "calm", "a123")
	require.NoError(t, err)
	assert.Equal(t, "24.9", resp.Price.String())
	assert.Equal(t, "EUR", resp.Currency)
	assert.Equal(t, "cersanit", resp.Factory)
	assert.Equal(t, srv.URL+"/fr/tile/cersanit/calm/a/a123", resp.SourceURL)

	// second call is served from cache
	resp2, err := f.Fetch(context.Background(), "cersanit", "calm", "a123")
	require.NoError(t, err)
	assert.Equal(t, resp.Price.String(), resp2.Price.String())
	assert.Equal(t, 1, requests)
}

func TestTileExpertFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL, nil)
	_, err := f.Fetch(context.Background(), "cersanit", "calm", "missing")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestTileExpertFetchNoPriceOnPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><p>coming soon</p></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL, nil)
	_, err := f.Fetch(context.Background(), "cersanit", "calm", "a123")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestTileExpertFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL, nil)
	_, err := f.Fetch(context.Background(), "cersanit", "calm", "a123")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnavailable, errorbank.From(err).Kind())
}

func TestExtractPrice(t *testing.T) {
	cases := map[string]string{
		`{"price": "19.90"}`:                          "19.9",
		`{"price": 42}`:                               "42",
		`<div data-price="12,34"></div>`:              "12.34",
		`<meta itemprop="price" content="7.77">`:      "7.77",
		`total 15,50 €`:                               "15.5",
		`€ 8.20`:                                      "8.2",
	}
	for page, want := range cases {
		price, err := ExtractPrice(page)
		require.NoError(t, err, "page=%q", page)
		assert.Equal(t, want, price.String(), "page=%q", page)
	}

	_, err := ExtractPrice("<html>no numbers here</html>")
	assert.Error(t, err)
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "EUR", DetectCurrency("price 10 €"))
	assert.Equal(t, "USD", DetectCurrency("price $10"))
	assert.Equal(t, "GBP", DetectCurrency("price £10"))
	assert.Equal(t, "EUR", DetectCurrency("price 10"))
}
