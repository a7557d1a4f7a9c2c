// Package sync imports deployment records shared by other operators into the
// local registry.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

// ErrNoSource is returned when neither an argument nor config names a source.
var ErrNoSource = errors.New("no deployments source configured: run `vaultctl config set deployments_source <url>`")

// maxManifestSize bounds how much of a remote manifest is read.
const maxManifestSize = 8 << 20

// Report lists what an import changed, as "profile@chainID" keys.
type Report struct {
	Added   []string
	Updated []string
	Skipped []string
}

// Changed reports whether the import touched the registry.
func (r *Report) Changed() bool { return len(r.Added)+len(r.Updated) > 0 }

// Syncer merges a shared deployments manifest into the local registry. The
// manifest has the same format as deployments.json.
type Syncer struct {
	cfg    *config.Config
	reg    *contract.Registry
	client *http.Client
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Syncer writing into reg. log may be nil.
func New(cfg *config.Config, reg *contract.Registry, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		cfg:    cfg,
		reg:    reg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
		now:    time.Now,
	}
}

// Run imports from source, or from the configured source when empty. A
// record replaces a local one for the same profile and chain only when it
// is newer. The registry is saved and the import time recorded in config.
func (s *Syncer) Run(ctx context.Context, source string) (*Report, error) {
	if source == "" {
		source = s.cfg.DeploymentsSource
	}
	if source == "" {
		return nil, ErrNoSource
	}

	records, err := s.fetchManifest(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}

	rep := &Report{}
	for i, rec := range records {
		if rec == nil {
			key := fmt.Sprintf("#%d", i)
			s.log.Warn("skipping null manifest record", zap.String("record", key))
			rep.Skipped = append(rep.Skipped, key)
			continue
		}
		key := fmt.Sprintf("%s@%d", rec.Profile, rec.ChainID)
		if err := validRecord(rec); err != nil {
			s.log.Warn("skipping manifest record", zap.String("record", key), zap.Error(err))
			rep.Skipped = append(rep.Skipped, key)
			continue
		}
		local, err := s.reg.Get(rec.Profile, rec.ChainID)
		switch {
		case err != nil:
			rep.Added = append(rep.Added, key)
		case rec.DeployedAt.After(local.DeployedAt):
			rep.Updated = append(rep.Updated, key)
		default:
			rep.Skipped = append(rep.Skipped, key)
			continue
		}
		s.reg.Add(rec)
	}

	if rep.Changed() {
		if err := s.reg.Save(); err != nil {
			return nil, fmt.Errorf("saving deployments: %w", err)
		}
	}
	s.cfg.LastImported = s.now().UTC().Format(time.RFC3339)
	if err := s.cfg.Save(); err != nil {
		return nil, err
	}
	s.log.Info("deployments imported",
		zap.String("source", source),
		zap.Int("added", len(rep.Added)),
		zap.Int("updated", len(rep.Updated)),
		zap.Int("skipped", len(rep.Skipped)))
	return rep, nil
}

// SetSource stores the manifest location in config.
func (s *Syncer) SetSource(source string) error {
	s.cfg.DeploymentsSource = source
	return s.cfg.Save()
}

// Watch runs Run on a ticker until ctx is cancelled. Only the first run's
// error is returned; later failures are logged.
func (s *Syncer) Watch(ctx context.Context, source string, interval time.Duration, onRun func(*Report)) error {
	rep, err := s.Run(ctx, source)
	if err != nil {
		return err
	}
	if onRun != nil {
		onRun(rep)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rep, err := s.Run(ctx, source)
			if err != nil {
				s.log.Warn("deployments import failed", zap.Error(err))
				continue
			}
			if onRun != nil {
				onRun(rep)
			}
		}
	}
}

func validRecord(rec *contract.Record) error {
	switch {
	case rec.Profile == "":
		return errors.New("profile is empty")
	case rec.ChainID == 0:
		return errors.New("chain_id is zero")
	case !common.IsHexAddress(rec.Vault):
		return fmt.Errorf("vault %q is not an address", rec.Vault)
	case !common.IsHexAddress(rec.Token):
		return fmt.Errorf("token %q is not an address", rec.Token)
	}
	return nil
}

func (s *Syncer) fetchManifest(ctx context.Context, source string) ([]*contract.Record, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: HTTP %d", source, resp.StatusCode)
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		body, err = os.ReadFile(source)
		if err != nil {
			return nil, err
		}
	}

	var records []*contract.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return records, nil
}
