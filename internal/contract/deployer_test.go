package contract

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ctorABI = `[{"type":"constructor","inputs":[{"name":"token","type":"address"},{"name":"lockPeriod","type":"uint256"}]}]`

func testArtifact(t *testing.T) *Artifact {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(ctorABI))
	require.NoError(t, err)
	return &Artifact{Name: "HornLockVault", ABI: parsed, Bytecode: []byte{0x60, 0x80, 0x60, 0x40}}
}

func TestDeployerSubmitPredictsAddress(t *testing.T) {
	b := newFakeBackend()
	b.nonce = 9
	d := NewDeployer(newTestTransactor(t, b))

	dep, err := d.Submit(context.Background(), testArtifact(t), []string{"0x0850e38e4ec34d1d83130ab47a57a955158a7f36", "20"})
	require.NoError(t, err)

	assert.Equal(t, "HornLockVault", dep.Name)
	assert.Equal(t, uint64(9), dep.Nonce)
	assert.Equal(t, crypto.CreateAddress(dep.From, 9), dep.Predicted)
	require.Len(t, b.sent, 1)
	assert.Nil(t, b.sent[0].To())
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, b.sent[0].Data()[:4])
	assert.Len(t, b.sent[0].Data(), 4+64)
}

func TestDeployerSubmitRejectsBadArgs(t *testing.T) {
	b := newFakeBackend()
	d := NewDeployer(newTestTransactor(t, b))

	_, err := d.Submit(context.Background(), testArtifact(t), []string{"not-an-address", "20"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	assert.Empty(t, b.sent)
}

func TestDeployerConfirmUsesReceiptAddress(t *testing.T) {
	b := newFakeBackend()
	deployed := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	b.receipt.ContractAddress = deployed
	b.code[deployed] = []byte{0x01}
	d := NewDeployer(newTestTransactor(t, b))

	h, err := d.Deploy(context.Background(), testArtifact(t), []string{deployed.Hex(), "1"})
	require.NoError(t, err)
	assert.Equal(t, deployed, h.Address)
	assert.NotNil(t, h.Receipt)
	assert.Equal(t, h.Receipt.TxHash, h.TxHash)
}

func TestDeployerConfirmFallsBackToPredicted(t *testing.T) {
	b := newFakeBackend()
	d := NewDeployer(newTestTransactor(t, b))

	dep, err := d.Submit(context.Background(), testArtifact(t), []string{common.Address{}.Hex(), "1"})
	require.NoError(t, err)
	b.code[dep.Predicted] = []byte{0x01}

	h, err := d.Confirm(context.Background(), dep)
	require.NoError(t, err)
	assert.Equal(t, dep.Predicted, h.Address)
}

func TestDeployerConfirmRequiresCode(t *testing.T) {
	b := newFakeBackend()
	d := NewDeployer(newTestTransactor(t, b))

	_, err := d.Deploy(context.Background(), testArtifact(t), []string{common.Address{}.Hex(), "1"})
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestDeployerAttach(t *testing.T) {
	b := newFakeBackend()
	token := common.HexToAddress("0x901727dF7F255100aa7cF73b160085f5843c373C")
	d := NewDeployer(newTestTransactor(t, b))

	_, err := d.Attach(context.Background(), "HornToken", token)
	require.ErrorIs(t, err, ErrNoCode)

	b.code[token] = []byte{0x01}
	h, err := d.Attach(context.Background(), "HornToken", token)
	require.NoError(t, err)
	assert.Equal(t, token, h.Address)
	assert.Nil(t, h.Receipt)
}
