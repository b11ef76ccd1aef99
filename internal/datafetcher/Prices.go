/*
This file is used to fetch current USD prices from the DefiLlama coins API.

A single request carries every requested token as "<chain>:<address>" and the response maps
those keys to price entries. Tokens the API does not know are simply absent from the result.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
	"github.com/yieldindex/lendnorm/internal/utils"
)

var ErrPriceRequest = errors.New("price request failed")
var ErrInvalidPriceData = errors.New("invalid price data received")

const (
	DefaultPriceAPI = "https://coins.llama.fi"
	DEFAULT_TIMEOUT = 30 * time.Second
	// MAX_KEYS_PER_REQUEST keeps the request path well under common URL length limits.
	MAX_KEYS_PER_REQUEST = 100
)

// PriceFeed returns current USD prices keyed by PriceKey(chain, address).
type PriceFeed interface {
	GetCurrentPrices(ctx context.Context, chain string, addresses []string) (map[string]types.TokenPrice, error)
}

// PriceKey builds the lowercase "<chain>:<address>" key used by PriceFeed results.
func PriceKey(chain, address string) string {
	return strings.ToLower(strings.TrimSpace(chain) + ":" + strings.TrimSpace(address))
}

type llamaResponse struct {
	Coins map[string]struct {
		Decimals   int     `json:"decimals"`
		Symbol     string  `json:"symbol"`
		Price      float64 `json:"price"`
		Timestamp  int64   `json:"timestamp"`
		Confidence float64 `json:"confidence"`
	} `json:"coins"`
}

// LlamaPriceClient implements PriceFeed against the DefiLlama coins API.
type LlamaPriceClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     zerolog.Logger
}

var _ PriceFeed = (*LlamaPriceClient)(nil)

// NewLlamaPriceClient creates a price client. maxRetries below 1 means a single attempt.
func NewLlamaPriceClient(baseURL string, timeout time.Duration, maxRetries int) *LlamaPriceClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultPriceAPI
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &LlamaPriceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     logger.GetForComponent("price_retriever"),
	}
}

// GetCurrentPrices fetches prices for every address in one request per MAX_KEYS_PER_REQUEST
// keys. Entries with a non-positive or non-finite price are dropped.
func (c *LlamaPriceClient) GetCurrentPrices(ctx context.Context, chain string, addresses []string) (map[string]types.TokenPrice, error) {
	keys := make([]string, 0, len(addresses))
	seen := make(map[string]bool, len(addresses))
	for _, address := range addresses {
		if strings.TrimSpace(address) == "" {
			continue
		}
		key := PriceKey(chain, address)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	prices := make(map[string]types.TokenPrice, len(keys))
	for start := 0; start < len(keys); start += MAX_KEYS_PER_REQUEST {
		end := min(start+MAX_KEYS_PER_REQUEST, len(keys))
		if err := c.fetchBatch(ctx, keys[start:end], prices); err != nil {
			return nil, err
		}
	}

	c.logger.Debug().
		Str("chain", chain).
		Int("requested", len(keys)).
		Int("priced", len(prices)).
		Msg("Fetched current prices")

	return prices, nil
}

func (c *LlamaPriceClient) fetchBatch(ctx context.Context, keys []string, into map[string]types.TokenPrice) error {
	endpoint := c.baseURL + "/prices/current/" + strings.Join(keys, ",")

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logger.Debug().
			Int("keys", len(keys)).
			Int("attempt", attempt).
			Int("maxRetries", c.maxRetries).
			Msg("Making price API request")

		response, err := c.get(ctx, endpoint)
		if err == nil {
			mergePrices(response, into, c.logger)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Price request failed, will retry")
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrPriceRequest, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return fmt.Errorf("%w: after %d attempts: %w", ErrPriceRequest, c.maxRetries, lastErr)
}

func (c *LlamaPriceClient) get(ctx context.Context, endpoint string) (*llamaResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed llamaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}
	return &parsed, nil
}

func mergePrices(response *llamaResponse, into map[string]types.TokenPrice, log zerolog.Logger) {
	for key, coin := range response.Coins {
		if !utils.IsFinite(coin.Price) || coin.Price <= 0 {
			log.Warn().
				Str("key", key).
				Float64("price", coin.Price).
				Msg("Dropping non-positive price entry")
			continue
		}
		into[strings.ToLower(key)] = types.TokenPrice{
			Price:     coin.Price,
			Decimals:  coin.Decimals,
			Symbol:    coin.Symbol,
			Timestamp: coin.Timestamp,
		}
	}
}
