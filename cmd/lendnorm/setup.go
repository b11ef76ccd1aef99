package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/yieldindex/lendnorm/internal/adaptors"
	"github.com/yieldindex/lendnorm/internal/aggregator"
	"github.com/yieldindex/lendnorm/internal/assembler"
	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/config"
	"github.com/yieldindex/lendnorm/internal/datafetcher"
	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/metrics"
	"github.com/yieldindex/lendnorm/internal/types"
)

// runtime bundles everything a command needs. close releases the RPC connection.
type runtime struct {
	cfg        config.AppConfig
	aggregator *aggregator.Aggregator
	registry   *prometheus.Registry
	close      func()
}

// loadConfig reads the environment and initializes logging. Flags override the environment.
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.AppConfig{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// loadProtocols returns the protocol table entries for the configured chain.
func loadProtocols(cfg config.AppConfig) ([]types.ProtocolConfig, error) {
	all, err := config.LoadProtocols(cfg.ProtocolsFile)
	if err != nil {
		return nil, err
	}

	protocols := make([]types.ProtocolConfig, 0, len(all))
	for _, protocol := range all {
		if !strings.EqualFold(protocol.Chain, cfg.Chain) {
			log.Debug().Str("project", protocol.Project).Str("chain", protocol.Chain).Msg("Skipping protocol on another chain")
			continue
		}
		protocols = append(protocols, protocol)
	}
	if len(protocols) == 0 {
		return nil, fmt.Errorf("no protocols configured for chain %q", cfg.Chain)
	}
	return protocols, nil
}

// setup wires the chain client, price feed, adaptors, assemblers and metrics into an aggregator.
func setup(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	protocols, err := loadProtocols(cfg)
	if err != nil {
		return nil, err
	}

	client, closeClient, err := chain.Dial(ctx, cfg.Endpoints.RPCURL, cfg.Endpoints.MulticallAddress, cfg.RPCTimeout)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		closeClient()
		return nil, err
	}

	prices := datafetcher.NewLlamaPriceClient(cfg.Endpoints.PriceAPI, cfg.PriceTimeout, 1)
	tokens := datafetcher.NewTokenReader(client)

	sources := make([]aggregator.Source, 0, len(protocols))
	for _, protocol := range protocols {
		source, err := adaptors.Build(protocol, client, tokens)
		if err != nil {
			closeClient()
			return nil, fmt.Errorf("failed to build adaptor for %s: %w", protocol.Project, err)
		}
		sources = append(sources, aggregator.Source{
			Protocol: protocol,
			Runner:   assembler.New(protocol, source, prices, m, cfg.MaxConcurrency),
		})
	}

	agg, err := aggregator.New(aggregator.Config{Sources: sources, Recorder: m})
	if err != nil {
		closeClient()
		return nil, err
	}

	return &runtime{cfg: cfg, aggregator: agg, registry: registry, close: closeClient}, nil
}
