package config

import (
	"net/url"

	"github.com/rs/zerolog/log"
)

// Endpoints holds the external endpoints loaded from environment variables.
type Endpoints struct {
	// RPCURL is the JSON-RPC endpoint of the target EVM chain.
	RPCURL string `envconfig:"RPC_URL" required:"true"`
	// PriceAPI is the base URL of the DefiLlama coins API.
	PriceAPI string `envconfig:"PRICE_API" default:"https://coins.llama.fi"`
	// MulticallAddress is the Multicall3 deployment used for batched reads.
	MulticallAddress string `envconfig:"MULTICALL_ADDRESS" default:"0xcA11bde05977b3631167028862bE2a173976CA11"`
}

func (e Endpoints) logLoaded() {
	log.Debug().
		Str("RPCURL", redact(e.RPCURL)).
		Str("PriceAPI", e.PriceAPI).
		Str("MulticallAddress", e.MulticallAddress).
		Msg("Endpoint configuration loaded successfully.")
}

// redact keeps the scheme and host of a URL, dropping paths that often carry API keys.
func redact(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	if parsed.Path == "" && parsed.RawQuery == "" {
		return parsed.Scheme + "://" + parsed.Host
	}
	return parsed.Scheme + "://" + parsed.Host + "/***"
}
