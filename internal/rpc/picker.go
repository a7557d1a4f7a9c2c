package rpc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint can serve requests.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Strategy names how an endpoint is chosen among a profile's RPCs.
type Strategy string

const (
	StrategyFastest    Strategy = "fastest"
	StrategyRoundRobin Strategy = "round-robin"
	StrategyFailover   Strategy = "failover"

	// Endpoints this many blocks behind the highest head are treated as unhealthy.
	staleBlockThreshold = 3
)

// ParseStrategy accepts the strategy names stored in config. Empty means fastest.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case "":
		return StrategyFastest, nil
	case StrategyFastest, StrategyRoundRobin, StrategyFailover:
		return st, nil
	}
	return "", fmt.Errorf("unknown RPC strategy %q (want fastest, round-robin or failover)", s)
}

// Endpoint is one RPC URL with what a probe learned about it.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     uint64
	Err         error
	Probed      bool
}

// Healthy reports whether the endpoint was probed successfully, or has not
// been probed at all.
func (e Endpoint) Healthy() bool {
	return !e.Probed || e.Err == nil
}

// Picker chooses an endpoint. Round-robin state lives on the Picker, so one
// Picker should be reused across calls.
type Picker struct {
	strategy Strategy

	mu   sync.Mutex
	next int
}

// NewPicker creates a Picker for strategy.
func NewPicker(strategy Strategy) *Picker {
	return &Picker{strategy: strategy}
}

// Strategy returns the picker's strategy.
func (p *Picker) Strategy() Strategy { return p.strategy }

// Pick selects an endpoint from eps.
//
//	fastest:     lowest latency among healthy endpoints that are not stale
//	round-robin: cycles through healthy endpoints in the given order
//	failover:    first healthy endpoint in the given order
func (p *Picker) Pick(eps []Endpoint) (Endpoint, error) {
	candidates := usable(eps)
	if len(candidates) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	switch p.strategy {
	case StrategyFailover:
		return candidates[0], nil
	case StrategyRoundRobin:
		p.mu.Lock()
		defer p.mu.Unlock()
		e := candidates[p.next%len(candidates)]
		p.next = (p.next + 1) % len(candidates)
		return e, nil
	default:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Latency < candidates[j].Latency
		})
		return candidates[0], nil
	}
}

// usable drops unhealthy endpoints and, when block heights are known,
// endpoints lagging the best head.
func usable(eps []Endpoint) []Endpoint {
	var head uint64
	for _, e := range eps {
		if e.Healthy() && e.BlockNumber > head {
			head = e.BlockNumber
		}
	}

	out := make([]Endpoint, 0, len(eps))
	for _, e := range eps {
		if !e.Healthy() {
			continue
		}
		if e.Probed && head-e.BlockNumber > staleBlockThreshold {
			continue
		}
		out = append(out, e)
	}
	return out
}
