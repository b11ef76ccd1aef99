package assembler

import (
	"errors"

	"github.com/yieldindex/lendnorm/internal/types"
)

var (
	ErrTransport          = errors.New("transport error")
	ErrClassificationMiss = errors.New("asset not in classification table")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrBatchFailure       = errors.New("market discovery failed")
	ErrInvalidPool        = errors.New("invalid normalized pool")
)

// MarketState is the position of one market in the assembly pipeline.
type MarketState int

const (
	StateDiscovered MarketState = iota
	StateClassified
	StateRatesFetched
	StatePriced
	StateEmitted
	StateSkipped
	StateFailed
)

func (s MarketState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateClassified:
		return "classified"
	case StateRatesFetched:
		return "rates_fetched"
	case StatePriced:
		return "priced"
	case StateEmitted:
		return "emitted"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s MarketState) Terminal() bool {
	return s == StateEmitted || s == StateSkipped || s == StateFailed
}

// market carries one discovered market through the pipeline. Each market is owned by a
// single goroutine at a time, so it needs no locking.
type market struct {
	ref      MarketRef
	state    MarketState
	raw      types.RawMarketState
	category types.MarketCategory
	err      error

	ratio         float64
	apyBase       float64
	apyBaseBorrow float64
	price         types.TokenPrice
	pool          types.NormalizedPool
}

func (m *market) fail(err error) {
	m.state = StateFailed
	m.err = err
}

// id returns the best identifier known so far for log lines.
func (m *market) id() string {
	if m.raw.MarketID != "" {
		return m.raw.MarketID
	}
	return m.ref.ID
}
