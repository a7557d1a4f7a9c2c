package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

const (
	tokenAddr = "0x901727dF7F255100aa7cF73b160085f5843c373C"
	vaultA    = "0x00000000000000000000000000000000000000a1"
	vaultB    = "0x00000000000000000000000000000000000000b2"
)

var (
	older = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newer = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
)

func testSyncer(t *testing.T) (*Syncer, *config.Config, *contract.Registry) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	reg := contract.NewRegistry(cfg.DeploymentsPath())
	s := New(cfg, reg, nil)
	s.now = func() time.Time { return newer }
	return s, cfg, reg
}

func record(profile string, chainID uint64, vault string, at time.Time) *contract.Record {
	return &contract.Record{
		Profile:    profile,
		Network:    "ganache",
		ChainID:    chainID,
		Kind:       "vault",
		Token:      tokenAddr,
		Vault:      vault,
		Roles:      []string{"MINTER_ROLE", "BURNER_ROLE"},
		DeployedAt: at,
	}
}

func manifestServer(t *testing.T, records ...*contract.Record) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// fetch
// ---------------------------------------------------------------------------

func TestFetchManifestFromURL(t *testing.T) {
	s, _, _ := testSyncer(t)
	srv := manifestServer(t, record("local", 1337, vaultA, older))

	recs, err := s.fetchManifest(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, vaultA, recs[0].Vault)
}

func TestFetchManifestFromFile(t *testing.T) {
	s, _, _ := testSyncer(t)
	path := filepath.Join(t.TempDir(), "shared.json")
	data, err := json.Marshal([]*contract.Record{record("local", 1337, vaultA, older)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	recs, err := s.fetchManifest(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestFetchManifestInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"contracts": {}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	s, _, _ := testSyncer(t)
	_, err := s.fetchManifest(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "parsing manifest")
}

func TestFetchManifestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s, _, _ := testSyncer(t)
	_, err := s.fetchManifest(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestFetchManifestConnectionError(t *testing.T) {
	s, _, _ := testSyncer(t)
	_, err := s.fetchManifest(context.Background(), "http://127.0.0.1:1/deployments.json")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunNoSourceConfigured(t *testing.T) {
	s, _, _ := testSyncer(t)
	_, err := s.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRunAddsRecordsAndSaves(t *testing.T) {
	s, cfg, _ := testSyncer(t)
	srv := manifestServer(t,
		record("local", 1337, vaultA, older),
		record("ropsten", 3, vaultB, older))

	rep, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"local@1337", "ropsten@3"}, rep.Added)
	assert.True(t, rep.Changed())

	// Persisted: a fresh registry sees both.
	fresh := contract.NewRegistry(cfg.DeploymentsPath())
	require.NoError(t, fresh.Load())
	assert.Len(t, fresh.All(), 2)
	assert.Equal(t, newer.Format(time.RFC3339), cfg.LastImported)
}

func TestRunKeepsNewerLocalRecord(t *testing.T) {
	s, _, reg := testSyncer(t)
	reg.Add(record("local", 1337, vaultA, newer))
	srv := manifestServer(t, record("local", 1337, vaultB, older))

	rep, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"local@1337"}, rep.Skipped)
	assert.False(t, rep.Changed())

	rec, err := reg.Get("local", 1337)
	require.NoError(t, err)
	assert.Equal(t, vaultA, rec.Vault)
}

func TestRunReplacesOlderLocalRecord(t *testing.T) {
	s, _, reg := testSyncer(t)
	reg.Add(record("local", 1337, vaultA, older))
	srv := manifestServer(t, record("local", 1337, vaultB, newer))

	rep, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"local@1337"}, rep.Updated)

	rec, err := reg.Get("local", 1337)
	require.NoError(t, err)
	assert.Equal(t, vaultB, rec.Vault)
}

func TestRunSkipsInvalidRecords(t *testing.T) {
	s, _, reg := testSyncer(t)
	srv := manifestServer(t,
		record("", 1337, vaultA, older),
		record("zero-chain", 0, vaultA, older),
		record("bad-vault", 5, "0xnope", older),
		record("ok", 5, vaultA, older))

	rep, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok@5"}, rep.Added)
	assert.Len(t, rep.Skipped, 3)
	assert.Len(t, reg.All(), 1)
}

func TestRunSkipsNullRecords(t *testing.T) {
	s, _, reg := testSyncer(t)
	ok, err := json.Marshal(record("ok", 5, vaultA, older))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "shared.json")
	require.NoError(t, os.WriteFile(path, []byte(`[null, `+string(ok)+`, null]`), 0o600))

	rep, err := s.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok@5"}, rep.Added)
	assert.Equal(t, []string{"#0", "#2"}, rep.Skipped)
	assert.Len(t, reg.All(), 1)
}

func TestRunUsesConfiguredSource(t *testing.T) {
	s, cfg, _ := testSyncer(t)
	srv := manifestServer(t, record("local", 1337, vaultA, older))
	require.NoError(t, s.SetSource(srv.URL))

	reloaded, err := config.Load(cfg.Dir())
	require.NoError(t, err)
	assert.Equal(t, srv.URL, reloaded.DeploymentsSource)

	rep, err := s.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, rep.Added, 1)
}

// ---------------------------------------------------------------------------
// Watch
// ---------------------------------------------------------------------------

func TestWatchCancellation(t *testing.T) {
	// Watch should return nil when the context is cancelled.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	s, _, _ := testSyncer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	runs := 0
	done := make(chan error, 1)
	go func() {
		// A long tick so only the initial run happens.
		done <- s.Watch(ctx, srv.URL, 30*time.Second, func(*Report) { runs++ })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err, "Watch should return nil on context cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after context deadline")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, runs)
}

func TestWatchReturnsFirstError(t *testing.T) {
	s, _, _ := testSyncer(t)
	err := s.Watch(context.Background(), "", time.Second, nil)
	assert.ErrorIs(t, err, ErrNoSource)
}
