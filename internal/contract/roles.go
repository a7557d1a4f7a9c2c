package contract

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// DefaultAdminRole is AccessControl's DEFAULT_ADMIN_ROLE (all zeroes).
const DefaultAdminRole = "DEFAULT_ADMIN_ROLE"

// RoleID computes the identifier OpenZeppelin AccessControl contracts use
// for a named role: keccak256(name), or zero for DEFAULT_ADMIN_ROLE. The
// chain's getter stays the source of truth; this is for display and offline
// checks.
func RoleID(name string) [32]byte {
	var id [32]byte
	if name == DefaultAdminRole {
		return id
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	copy(id[:], h.Sum(nil))
	return id
}

// RoleHex renders a role identifier as 0x-prefixed hex.
func RoleHex(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}
