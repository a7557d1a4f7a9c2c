package chain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestRevertErrorMessage(t *testing.T) {
	assert.Equal(t, "execution reverted", (&RevertError{}).Error())
	assert.Equal(t, "execution reverted: locked", (&RevertError{Reason: "locked"}).Error())

	err := &RevertError{Reason: "transaction reverted", TxHash: common.HexToHash("0x01")}
	assert.Contains(t, err.Error(), "tx 0x0000")
}

func TestIsRevertWrapped(t *testing.T) {
	err := fmt.Errorf("grant MINTER_ROLE: %w", &RevertError{Reason: "missing role"})
	assert.True(t, IsRevert(err))
	assert.False(t, IsRevert(fmt.Errorf("x: %w", &RPCError{Code: -32000})))
	assert.False(t, IsRevert(nil))
}

func TestRevertReasonPrefersData(t *testing.T) {
	data, _ := json.Marshal(revertData(t, "from data"))
	assert.Equal(t, "from data", revertReason("execution reverted: from message", data))
}

func TestRevertReasonFallsBackToMessage(t *testing.T) {
	data, _ := json.Marshal("0x1234")
	assert.Equal(t, "from message", revertReason("execution reverted: from message", data))
	assert.Equal(t, "", revertReason("execution reverted", nil))
}
