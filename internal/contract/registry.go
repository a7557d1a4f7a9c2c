package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// ErrDeploymentNotFound is returned when no deployment is recorded for a
// profile on a chain.
var ErrDeploymentNotFound = errors.New("deployment not found")

// Record is one completed deployment.
type Record struct {
	Profile    string    `json:"profile"`
	Network    string    `json:"network"`
	ChainID    uint64    `json:"chain_id"`
	Kind       string    `json:"kind"`
	Admin      string    `json:"admin"`
	Token      string    `json:"token"`
	TokenTx    string    `json:"token_tx,omitempty"`
	Vault      string    `json:"vault"`
	VaultTx    string    `json:"vault_tx"`
	Block      uint64    `json:"block"`
	Roles      []string  `json:"roles"`
	DeployedAt time.Time `json:"deployed_at"`
}

// Registry stores deployment records keyed by profile and chain ID.
// A redeploy of the same profile on the same chain replaces the old record.
type Registry struct {
	path    string
	records map[string]*Record // key: "profile@chainID"
}

// NewRegistry creates a Registry backed by a JSON file.
func NewRegistry(path string) *Registry {
	return &Registry{
		path:    path,
		records: make(map[string]*Record),
	}
}

// Load reads stored records from disk. A missing file is an empty registry.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing %s: %w", r.path, err)
	}

	for i := range records {
		rec := &records[i]
		r.records[key(rec.Profile, rec.ChainID)] = rec
	}
	return nil
}

// Save writes all records to disk, oldest first.
func (r *Registry) Save() error {
	all := r.All()
	records := make([]Record, 0, len(all))
	for _, rec := range all {
		records = append(records, *rec)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}

// Add adds or replaces a record.
func (r *Registry) Add(rec *Record) {
	r.records[key(rec.Profile, rec.ChainID)] = rec
}

// Get returns the record for profile on chainID.
func (r *Registry) Get(profile string, chainID uint64) (*Record, error) {
	rec, ok := r.records[key(profile, chainID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrDeploymentNotFound, profile, chainID)
	}
	return rec, nil
}

// Latest returns the most recent record for profile on any chain.
func (r *Registry) Latest(profile string) (*Record, error) {
	var latest *Record
	for _, rec := range r.records {
		if rec.Profile != profile {
			continue
		}
		if latest == nil || rec.DeployedAt.After(latest.DeployedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, profile)
	}
	return latest, nil
}

// All returns every record ordered by deployment time.
func (r *Registry) All() []*Record {
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeployedAt.Equal(out[j].DeployedAt) {
			return key(out[i].Profile, out[i].ChainID) < key(out[j].Profile, out[j].ChainID)
		}
		return out[i].DeployedAt.Before(out[j].DeployedAt)
	})
	return out
}

// Remove deletes the record for profile on chainID.
func (r *Registry) Remove(profile string, chainID uint64) error {
	k := key(profile, chainID)
	if _, ok := r.records[k]; !ok {
		return fmt.Errorf("%w: %s on chain %d", ErrDeploymentNotFound, profile, chainID)
	}
	delete(r.records, k)
	return nil
}

func key(profile string, chainID uint64) string {
	return profile + "@" + strconv.FormatUint(chainID, 10)
}
