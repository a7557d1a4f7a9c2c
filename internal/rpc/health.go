package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 5 * time.Second

// ErrChainMismatch marks an endpoint serving a different chain than expected.
var ErrChainMismatch = errors.New("endpoint serves a different chain")

// Probe measures url's latency and head block. When wantChainID is non-zero
// the endpoint must also report that chain ID. The returned Endpoint always
// carries the URL; a failed probe is recorded in Err.
func Probe(ctx context.Context, url string, wantChainID uint64, timeout time.Duration) Endpoint {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ep := Endpoint{URL: url, Probed: true}
	c := chain.NewEVMClient(url)

	ep.Latency, ep.BlockNumber, ep.Err = c.Ping(ctx)
	if ep.Err != nil {
		return ep
	}

	id, err := c.ChainID(ctx)
	if err != nil {
		ep.Err = err
		return ep
	}
	ep.ChainID = id.Uint64()
	if wantChainID != 0 && ep.ChainID != wantChainID {
		ep.Err = fmt.Errorf("%w: got %d, want %d", ErrChainMismatch, ep.ChainID, wantChainID)
	}
	return ep
}
