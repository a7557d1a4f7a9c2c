package contract_test

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/vaultctl/internal/contract"
)

const vaultABI = `[{"type":"constructor","inputs":[
	{"name":"token","type":"address"},
	{"name":"feeRecipient","type":"address"},
	{"name":"lockPeriod","type":"uint256"},
	{"name":"feeRate","type":"uint16"},
	{"name":"cap","type":"uint256"},
	{"name":"mode","type":"uint8"},
	{"name":"price","type":"uint256"}]}]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadArtifactTruffle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "HornLockVault.json",
		`{"contractName":"HornLockVault","abi":`+vaultABI+`,"bytecode":"0x6080604052"}`)

	art, err := contract.FindArtifact(dir, "HornLockVault")
	require.NoError(t, err)
	assert.Equal(t, "HornLockVault", art.Name)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, art.Bytecode)
	assert.Len(t, art.ConstructorInputs(), 7)
}

func TestLoadArtifactFoundry(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "Token.json", `{"abi":[],"bytecode":{"object":"0x6001"}}`)

	art, err := contract.LoadArtifact(p)
	require.NoError(t, err)
	assert.Equal(t, "Token", art.Name)
	assert.Equal(t, []byte{0x60, 0x01}, art.Bytecode)
	assert.Empty(t, art.ConstructorInputs())
}

func TestLoadArtifactErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "empty"},
		{"bad json", "{", "invalid artifact JSON"},
		{"no abi", `{"bytecode":"0x60"}`, "no \"abi\""},
		{"no bytecode", `{"abi":[]}`, "no bytecode"},
		{"empty bytecode", `{"abi":[],"bytecode":"0x"}`, "bytecode is empty"},
		{"unlinked", `{"abi":[],"bytecode":"0x6080__$lib$__"}`, "unlinked"},
		{"bad hex", `{"abi":[],"bytecode":"0xzz"}`, "invalid bytecode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".json", tt.content)
			_, err := contract.LoadArtifact(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadArtifactMissing(t *testing.T) {
	_, err := contract.FindArtifact(t.TempDir(), "Nope")
	assert.Error(t, err)
}

func TestResolveArtifactPath(t *testing.T) {
	assert.Equal(t, filepath.Join("build", "contracts", "HornToken.json"),
		contract.ResolveArtifactPath(filepath.Join("build", "contracts"), "HornToken"))
	assert.Equal(t, "out/HornToken.json", contract.ResolveArtifactPath("build", "out/HornToken.json"))
}

func TestDeployDataAppendsConstructorArgs(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(vaultABI))
	require.NoError(t, err)
	art := &contract.Artifact{Name: "HornLockVault", ABI: parsed, Bytecode: []byte{0xfe}}

	args := []string{
		"0x901727dF7F255100aa7cF73b160085f5843c373C",
		"0x0850e38e4ec34d1d83130ab47a57a955158a7f36",
		"20", "10", "100", "0", "1000000000000000000",
	}
	data, err := art.DeployData(args)
	require.NoError(t, err)
	require.Len(t, data, 1+7*32)
	assert.Equal(t, byte(0xfe), data[0])

	words := data[1:]
	assert.Equal(t, common.HexToAddress(args[0]).Bytes(), words[12:32])
	assert.Equal(t, int64(20), new(big.Int).SetBytes(words[2*32:3*32]).Int64())
	assert.Equal(t, "1000000000000000000", new(big.Int).SetBytes(words[6*32:7*32]).String())

	_, err = art.DeployData(args[:6])
	assert.ErrorContains(t, err, "expects 7 arguments, got 6")
}
