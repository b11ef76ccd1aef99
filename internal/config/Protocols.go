/*

This file contains the protocol table loader.

The table ships embedded in the binary (protocols.yaml) and can be replaced at runtime by
pointing PROTOCOLS_FILE at another YAML file with the same shape. Every protocol is validated
and its classification table is built here, once per process.

*/

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/yieldindex/lendnorm/internal/types"
	"github.com/yieldindex/lendnorm/internal/utils"
)

//go:embed protocols.yaml
var defaultProtocols []byte

var ErrInvalidProtocol = errors.New("invalid protocol configuration")

// LoadProtocols reads the protocol table from path, or the embedded table when path is empty.
func LoadProtocols(path string) ([]types.ProtocolConfig, error) {
	data := defaultProtocols
	source := "embedded"
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read protocols file %s: %w", path, err)
		}
		data = raw
		source = path
	}

	protocols, err := ParseProtocols(data)
	if err != nil {
		return nil, err
	}

	log.Info().Str("source", source).Int("protocols", len(protocols)).Msg("Protocol table loaded")
	return protocols, nil
}

// ParseProtocols decodes and validates a YAML protocol table.
func ParseProtocols(data []byte) ([]types.ProtocolConfig, error) {
	var protocols []types.ProtocolConfig
	if err := yaml.Unmarshal(data, &protocols); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProtocol, err)
	}
	if len(protocols) == 0 {
		return nil, fmt.Errorf("%w: no protocols configured", ErrInvalidProtocol)
	}

	seen := make(map[string]bool, len(protocols))
	for i := range protocols {
		p := &protocols[i]
		applyDefaults(p)

		if err := validateProtocol(*p); err != nil {
			return nil, err
		}
		if seen[p.Project] {
			return nil, fmt.Errorf("%w: duplicate project %s", ErrInvalidProtocol, p.Project)
		}
		seen[p.Project] = true

		table, err := types.NewClassificationTable(p.Categories)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProtocol, p.Project, err)
		}
		p.Classification = table

		log.Debug().
			Str("project", p.Project).
			Str("adaptor", p.Adaptor).
			Int("depth", p.Depth).
			Int("classifiedAssets", len(table)).
			Msg("Protocol configuration validated")
	}

	return protocols, nil
}

func applyDefaults(p *types.ProtocolConfig) {
	if p.Adaptor == "" {
		p.Adaptor = p.Project
	}
	if p.RatioMode == "" {
		p.RatioMode = types.RatioUtilization
	}
	if p.LtvSource == "" {
		p.LtvSource = types.LtvFromRatio
	}
	if p.Tvl == "" {
		p.Tvl = types.TvlTotalSupply
	}
}

func validateProtocol(p types.ProtocolConfig) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidProtocol, p.Project, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(p.Project) == "" {
		return fmt.Errorf("%w: protocol without project name", ErrInvalidProtocol)
	}
	if strings.TrimSpace(p.Chain) == "" {
		return fail("chain is required")
	}
	if p.Depth < 0 {
		return fail("depth must not be negative, got %d", p.Depth)
	}
	if !(p.MaxRatio > 0 && p.MaxRatio < 1) {
		return fail("maxRatio must be in (0,1), got %v", p.MaxRatio)
	}
	if p.RateDecimals < 0 || p.RatioDecimals < 0 || p.LtvDecimals < 0 {
		return fail("decimal scales must not be negative")
	}

	switch p.RatioMode {
	case types.RatioUtilization, types.RatioLtv:
	default:
		return fail("unknown ratioMode %q", p.RatioMode)
	}
	switch p.LtvSource {
	case types.LtvFromRatio, types.LtvFromRisk, types.LtvNone:
	default:
		return fail("unknown ltvSource %q", p.LtvSource)
	}
	switch p.Tvl {
	case types.TvlTotalSupply, types.TvlNetDeposits:
	default:
		return fail("unknown tvl convention %q", p.Tvl)
	}

	for role, address := range p.Contracts {
		if !common.IsHexAddress(address) {
			return fail("contract %s has invalid address %q", role, address)
		}
	}

	if len(p.Categories) == 0 {
		return fail("at least one category is required")
	}
	for category, cfg := range p.Categories {
		if !category.Valid() {
			return fail("unknown category %q", category)
		}
		switch cfg.Rates.Kind {
		case types.RateSourceLive:
		case types.RateSourceFixed:
			if !utils.IsFinite(cfg.Rates.SupplyRate) || !utils.IsFinite(cfg.Rates.BorrowRate) {
				return fail("category %s has non-finite fixed rates", category)
			}
		default:
			return fail("category %s has unknown rate source %q", category, cfg.Rates.Kind)
		}
		for _, address := range cfg.Addresses {
			if !common.IsHexAddress(address) {
				return fail("category %s has invalid address %q", category, address)
			}
		}
	}

	return nil
}
