package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RPCError is a JSON-RPC error object returned by the node that is not a
// contract revert (bad params, rate limits, unknown method, ...).
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// RevertError is a rejection by the remote contract: a reverted eth_call or
// eth_estimateGas, or a mined transaction with status 0.
type RevertError struct {
	Reason string
	Code   int
	TxHash common.Hash // set when the revert comes from a mined receipt
}

func (e *RevertError) Error() string {
	msg := "execution reverted"
	if e.Reason != "" && e.Reason != msg {
		msg += ": " + e.Reason
	}
	if e.TxHash != (common.Hash{}) {
		msg += " (tx " + e.TxHash.Hex() + ")"
	}
	return msg
}

// IsRevert reports whether err (or anything it wraps) is a contract revert.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}

// revertReason extracts the human-readable reason from a node error. Nodes put
// the ABI-encoded Error(string) payload in data and a summary in message.
func revertReason(message string, data json.RawMessage) string {
	if len(data) > 0 {
		var hexData string
		if err := json.Unmarshal(data, &hexData); err == nil {
			if raw, err := hexutil.Decode(hexData); err == nil {
				if reason, err := abi.UnpackRevert(raw); err == nil {
					return reason
				}
			}
		}
	}
	reason := strings.TrimSpace(message)
	for _, prefix := range []string{"execution reverted:", "execution reverted", "VM Exception while processing transaction: revert"} {
		if strings.HasPrefix(reason, prefix) {
			reason = strings.TrimSpace(strings.TrimPrefix(reason, prefix))
			break
		}
	}
	return reason
}
