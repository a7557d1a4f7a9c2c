package rpc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// nodeServer answers eth_blockNumber and eth_chainId, optionally after a delay.
func nodeServer(t *testing.T, block, chainID uint64, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if delay > 0 {
			time.Sleep(delay)
		}
		var result uint64
		switch req.Method {
		case "eth_blockNumber":
			result = block
		case "eth_chainId":
			result = chainID
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":"0x%x"}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestProbe(t *testing.T) {
	srv := nodeServer(t, 1000, 1337, 0)

	e := rpc.Probe(context.Background(), srv.URL, 1337, time.Second)
	require.NoError(t, e.Err)
	assert.True(t, e.Probed)
	assert.Equal(t, uint64(1000), e.BlockNumber)
	assert.Equal(t, uint64(1337), e.ChainID)
	assert.Positive(t, e.Latency)
}

func TestProbeChainMismatch(t *testing.T) {
	srv := nodeServer(t, 1000, 1, 0)

	e := rpc.Probe(context.Background(), srv.URL, 3, time.Second)
	assert.ErrorIs(t, e.Err, rpc.ErrChainMismatch)
	assert.False(t, e.Healthy())
}

func TestProbeTimeout(t *testing.T) {
	srv := nodeServer(t, 1, 1, 300*time.Millisecond)

	e := rpc.Probe(context.Background(), srv.URL, 0, 50*time.Millisecond)
	assert.Error(t, e.Err)
}

func TestBenchmarkKeepsOrder(t *testing.T) {
	a := nodeServer(t, 10, 1337, 0)
	b := deadServer(t)
	c := nodeServer(t, 11, 1337, 0)

	eps, err := rpc.Benchmark(context.Background(), []string{a.URL, b, c.URL}, rpc.Options{ChainID: 1337, Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, a.URL, eps[0].URL)
	assert.NoError(t, eps[0].Err)
	assert.Equal(t, b, eps[1].URL)
	assert.Error(t, eps[1].Err)
	assert.Equal(t, uint64(11), eps[2].BlockNumber)
}

func TestBenchmarkCancelled(t *testing.T) {
	srv := nodeServer(t, 10, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rpc.Benchmark(ctx, []string{srv.URL}, rpc.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectSingleURLSkipsProbe(t *testing.T) {
	url, err := rpc.Select(context.Background(), []string{"http://127.0.0.1:1"}, rpc.NewPicker(rpc.StrategyFastest), rpc.Options{})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1", url)

	_, err = rpc.Select(context.Background(), nil, rpc.NewPicker(rpc.StrategyFastest), rpc.Options{})
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}

func TestSelectFastest(t *testing.T) {
	slow := nodeServer(t, 10, 1337, 150*time.Millisecond)
	fast := nodeServer(t, 10, 1337, 0)

	url, err := rpc.Select(context.Background(), []string{slow.URL, fast.URL}, rpc.NewPicker(rpc.StrategyFastest), rpc.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, fast.URL, url)
}

func TestSelectFailoverSkipsWrongChain(t *testing.T) {
	wrong := nodeServer(t, 10, 1, 0)
	dead := deadServer(t)
	right := nodeServer(t, 10, 1337, 0)

	url, err := rpc.Select(context.Background(), []string{wrong.URL, dead, right.URL},
		rpc.NewPicker(rpc.StrategyFailover), rpc.Options{ChainID: 1337, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, right.URL, url)
}

func TestSelectAllDown(t *testing.T) {
	urls := []string{deadServer(t), deadServer(t)}
	for _, s := range []rpc.Strategy{rpc.StrategyFastest, rpc.StrategyFailover} {
		_, err := rpc.Select(context.Background(), urls, rpc.NewPicker(s), rpc.Options{Timeout: time.Second})
		assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC, s)
	}
}
