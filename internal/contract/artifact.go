package contract

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact is a compiled contract: its ABI and deployment bytecode.
type Artifact struct {
	Name     string
	Path     string
	ABI      abi.ABI
	Bytecode []byte
}

// ResolveArtifactPath turns an artifact reference into a file path. A bare
// contract name is looked up as <dir>/<name>.json, the Truffle layout.
func ResolveArtifactPath(dir, ref string) string {
	if strings.HasSuffix(ref, ".json") || strings.ContainsRune(ref, filepath.Separator) {
		return ref
	}
	return filepath.Join(dir, ref+".json")
}

// FindArtifact resolves ref against dir and loads it.
func FindArtifact(dir, ref string) (*Artifact, error) {
	return LoadArtifact(ResolveArtifactPath(dir, ref))
}

// LoadArtifact loads the ABI and deployment bytecode from a Truffle, Hardhat
// or Foundry artifact JSON file.
//
//	Truffle / Hardhat: {"contractName": "X", "abi": [...], "bytecode": "0x..."}
//	Foundry:           {"abi": [...], "bytecode": {"object": "0x..."}}
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("artifact file is empty: %s", path)
	}

	var raw struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     json.RawMessage `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid artifact JSON %s: %w", path, err)
	}

	if len(raw.ABI) < 2 || raw.ABI[0] != '[' {
		return nil, fmt.Errorf("artifact %s has no \"abi\" array", path)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("parsing artifact ABI %s: %w", path, err)
	}

	if len(raw.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact has no bytecode, cannot deploy an interface or abstract contract: %s", path)
	}
	bcHex, err := extractBytecodeHex(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("extracting bytecode from %s: %w", path, err)
	}
	bcHex = strings.TrimPrefix(bcHex, "0x")
	if bcHex == "" {
		return nil, fmt.Errorf("artifact bytecode is empty, cannot deploy an interface or abstract contract: %s", path)
	}
	if i := strings.Index(bcHex, "__"); i >= 0 {
		return nil, fmt.Errorf("artifact %s has unlinked library references (at offset %d)", path, i/2)
	}
	bc, err := hex.DecodeString(bcHex)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex in %s: %w", path, err)
	}

	name := raw.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	return &Artifact{Name: name, Path: path, ABI: parsed, Bytecode: bc}, nil
}

// extractBytecodeHex handles both the string form and Foundry's
// {"object": "0x..."} form.
func extractBytecodeHex(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("bytecode is neither a string nor an object with \"object\"")
	}
	return obj.Object, nil
}

// ConstructorInputs returns the constructor parameters, empty if the
// contract declares no constructor.
func (a *Artifact) ConstructorInputs() abi.Arguments {
	return a.ABI.Constructor.Inputs
}

// DeployData returns the creation payload: bytecode followed by the
// ABI-encoded constructor arguments.
func (a *Artifact) DeployData(args []string) ([]byte, error) {
	packed, err := PackConstructor(a.ABI, args)
	if err != nil {
		return nil, fmt.Errorf("%s constructor: %w", a.Name, err)
	}
	out := make([]byte, 0, len(a.Bytecode)+len(packed))
	out = append(out, a.Bytecode...)
	return append(out, packed...), nil
}
