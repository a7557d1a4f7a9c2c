package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// ErrNoCode is returned when an address expected to hold a contract is empty.
var ErrNoCode = errors.New("no contract code at address")

// Deployment is a submitted, unconfirmed contract creation.
type Deployment struct {
	Name      string
	TxHash    common.Hash
	From      common.Address
	Nonce     uint64
	Predicted common.Address // CREATE address derived from sender and nonce
}

// Handle is a confirmed, deployed contract instance.
type Handle struct {
	Name    string
	Address common.Address
	TxHash  common.Hash      // zero for attached contracts
	Receipt *chain.TxReceipt // nil for attached contracts
}

// Deployer creates contracts through a Transactor.
type Deployer struct {
	tx *Transactor
}

// NewDeployer creates a Deployer.
func NewDeployer(tx *Transactor) *Deployer {
	return &Deployer{tx: tx}
}

// Submit broadcasts the creation transaction for art with constructor args
// and returns without waiting for it to be mined.
func (d *Deployer) Submit(ctx context.Context, art *Artifact, args []string) (*Deployment, error) {
	data, err := art.DeployData(args)
	if err != nil {
		return nil, err
	}
	ptx, err := d.tx.Send(ctx, nil, data, defaultDeployGas)
	if err != nil {
		return nil, fmt.Errorf("deploying %s: %w", art.Name, err)
	}
	return &Deployment{
		Name:      art.Name,
		TxHash:    ptx.Hash,
		From:      ptx.From,
		Nonce:     ptx.Nonce,
		Predicted: crypto.CreateAddress(ptx.From, ptx.Nonce),
	}, nil
}

// Confirm waits for a deployment to be mined and checks that code exists at
// the resulting address.
func (d *Deployer) Confirm(ctx context.Context, dep *Deployment) (*Handle, error) {
	receipt, err := d.tx.Wait(ctx, dep.TxHash)
	if err != nil {
		return nil, fmt.Errorf("confirming %s: %w", dep.Name, err)
	}

	addr := receipt.ContractAddress
	if addr == (common.Address{}) {
		addr = dep.Predicted
	}
	if err := d.checkCode(ctx, addr); err != nil {
		return nil, fmt.Errorf("confirming %s: %w", dep.Name, err)
	}

	return &Handle{Name: dep.Name, Address: addr, TxHash: dep.TxHash, Receipt: receipt}, nil
}

// Deploy submits and confirms in one call.
func (d *Deployer) Deploy(ctx context.Context, art *Artifact, args []string) (*Handle, error) {
	dep, err := d.Submit(ctx, art, args)
	if err != nil {
		return nil, err
	}
	return d.Confirm(ctx, dep)
}

// Attach returns a handle to an already deployed contract after checking
// that it has code.
func (d *Deployer) Attach(ctx context.Context, name string, addr common.Address) (*Handle, error) {
	if err := d.checkCode(ctx, addr); err != nil {
		return nil, fmt.Errorf("attaching %s: %w", name, err)
	}
	return &Handle{Name: name, Address: addr}, nil
}

func (d *Deployer) checkCode(ctx context.Context, addr common.Address) error {
	code, err := d.tx.Backend().CodeAt(ctx, addr)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("%w %s", ErrNoCode, addr.Hex())
	}
	return nil
}
