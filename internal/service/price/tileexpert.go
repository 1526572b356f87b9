package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tileware/orderhub/internal/cache"
	"github.com/tileware/orderhub/internal/config"
	"github.com/tileware/orderhub/internal/dto"
	"github.com/tileware/orderhub/pkg/errorbank"
)

// maxPageBytes caps how much of a product page we are willing to scan.
const maxPageBytes = 4 << 20

// Price markers probed in order against the raw product page. The structured
// JSON attributes come first; bare currency-adjacent amounts are the last
// resort.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"price"\s*:\s*"?(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`data-price=["'](\d+(?:[.,]\d+)?)["']`),
	regexp.MustCompile(`itemprop=["']price["']\s+content=["'](\d+(?:[.,]\d+)?)["']`),
	regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:€|&euro;|EUR)`),
	regexp.MustCompile(`(?:€|&euro;|EUR)\s*(\d+(?:[.,]\d+)?)`),
}

var currencyMarkers = []struct {
	marker   string
	currency string
}{
	{"€", "EUR"},
	{"&euro;", "EUR"},
	{"EUR", "EUR"},
	{"$", "USD"},
	{"&pound;", "GBP"},
	{"£", "GBP"},
}

// TileExpertFetcher scrapes article prices from tile.expert product pages,
// caching successful lookups.
type TileExpertFetcher struct {
	client    *http.Client
	cache     cache.Store
	cacheTTL  time.Duration
	baseURL   string
	userAgent string
	logger    *zap.Logger
}

// NewTileExpertFetcher wires the tile.expert price source.
func NewTileExpertFetcher(cfg config.Config, store cache.Store, logger *zap.Logger) *TileExpertFetcher {
	return &TileExpertFetcher{
		client:    &http.Client{Timeout: cfg.Price.RequestTimeout},
		cache:     store,
		cacheTTL:  cfg.Price.CacheTTL,
		baseURL:   strings.TrimRight(cfg.Price.BaseURL, "/"),
		userAgent: cfg.Price.UserAgent,
		logger:    logger,
	}
}

// Supports reports whether this fetcher serves the named source.
func (f *TileExpertFetcher) Supports(source string) bool {
	return source == "tile.expert"
}

// Fetch resolves the article price, consulting the cache before going to the
// network. Cache entries are keyed by the full factory/collection/article
// triple.
func (f *TileExpertFetcher) Fetch(ctx context.Context, factory, collection, article string) (*dto.PriceResponse, error) {
	key := f.cacheKey(factory, collection, article)
	if cached, err := f.fromCache(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		f.logger.Warn("price cache read failed", zap.String("key", key), zap.Error(err))
	}

	pageURL := fmt.Sprintf("%s/fr/tile/%s/%s/a/%s",
		f.baseURL,
		url.PathEscape(factory),
		url.PathEscape(collection),
		url.PathEscape(article),
	)

	body, err := f.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	price, err := ExtractPrice(body)
	if err != nil {
		return nil, errorbank.NotFound("price not found for article", errorbank.WithCause(err))
	}

	resp := &dto.PriceResponse{
		Price:      price,
		Currency:   DetectCurrency(body),
		Factory:    factory,
		Collection: collection,
		Article:    article,
		FetchedAt:  time.Now().UTC().Format(time.RFC3339),
		SourceURL:  pageURL,
	}

	if err := f.toCache(ctx, key, resp); err != nil {
		f.logger.Warn("price cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

func (f *TileExpertFetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errorbank.Internal("build price request", errorbank.WithCause(err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := f.client.Do(req)
	if err != nil {
		return "", errorbank.Unavailable("price source unreachable", errorbank.WithCause(err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return "", errorbank.NotFound("article not found")
	}
	if res.StatusCode != http.StatusOK {
		return "", errorbank.Unavailable(fmt.Sprintf("price source returned status %d", res.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return "", errorbank.Unavailable("read price page", errorbank.WithCause(err))
	}
	return string(body), nil
}

func (f *TileExpertFetcher) cacheKey(factory, collection, article string) string {
	return fmt.Sprintf("price:tile.expert:%s:%s:%s", factory, collection, article)
}

func (f *TileExpertFetcher) fromCache(ctx context.Context, key string) (*dto.PriceResponse, error) {
	if f.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := f.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var resp dto.PriceResponse
	if err := json.Unmarshal(bytes, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *TileExpertFetcher) toCache(ctx context.Context, key string, resp *dto.PriceResponse) error {
	if f.cache == nil {
		return nil
	}
	bytes, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return f.cache.Set(ctx, key, bytes, f.cacheTTL)
}

// ExtractPrice scans the page for the first recognizable price amount.
// Decimal commas are normalized to dots.
func ExtractPrice(page string) (decimal.Decimal, error) {
	for _, pattern := range pricePatterns {
		match := pattern.FindStringSubmatch(page)
		if match == nil {
			continue
		}
		raw := strings.ReplaceAll(match[1], ",", ".")
		value, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		return value, nil
	}
	return decimal.Decimal{}, errors.New("no price marker in page")
}

// DetectCurrency inspects the page for currency markers, defaulting to EUR.
func DetectCurrency(page string) string {
	for _, m := range currencyMarkers {
		if strings.Contains(page, m.marker) {
			return m.currency
		}
	}
	return "EUR"
}
