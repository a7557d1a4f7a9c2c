package rpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallelProbes caps concurrent probes during a benchmark.
const maxParallelProbes = 8

// Options tunes Benchmark and Select.
type Options struct {
	ChainID uint64        // expected chain ID, 0 to skip the check
	Timeout time.Duration // per probe
	Logger  *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Benchmark probes every URL in parallel. Results keep the order of urls.
// Probe failures are reported per endpoint; the error is only non-nil when
// ctx is cancelled.
func Benchmark(ctx context.Context, urls []string, opts Options) ([]Endpoint, error) {
	results := make([]Endpoint, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)
	for i, url := range urls {
		g.Go(func() error {
			results[i] = Probe(gctx, url, opts.ChainID, opts.Timeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := opts.logger()
	for _, e := range results {
		if e.Err != nil {
			log.Debug("rpc probe failed", zap.String("url", e.URL), zap.Error(e.Err))
			continue
		}
		log.Debug("rpc probe",
			zap.String("url", e.URL),
			zap.Duration("latency", e.Latency),
			zap.Uint64("block", e.BlockNumber))
	}
	return results, nil
}

// Select returns the URL p would use for urls. A single URL is returned
// without probing. Failover probes in order and stops at the first healthy
// endpoint; the other strategies benchmark all URLs first.
func Select(ctx context.Context, urls []string, p *Picker, opts Options) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	if p.Strategy() == StrategyFailover {
		for _, url := range urls {
			e := Probe(ctx, url, opts.ChainID, opts.Timeout)
			if e.Err == nil {
				return url, nil
			}
			opts.logger().Warn("rpc unavailable, trying next", zap.String("url", url), zap.Error(e.Err))
		}
		return "", ErrNoHealthyRPC
	}

	eps, err := Benchmark(ctx, urls, opts)
	if err != nil {
		return "", err
	}
	e, err := p.Pick(eps)
	if err != nil {
		return "", err
	}
	opts.logger().Debug("rpc selected", zap.String("url", e.URL), zap.String("strategy", string(p.Strategy())))
	return e.URL, nil
}
