package domain

import "github.com/ethereum/go-ethereum/common"

// Principal identifies a participant or administrator. Wallets, keys, and
// signature verification live outside this system; an address is the only
// identity the engine ever sees.
type Principal = common.Address

// ParsePrincipal converts a hex string into a Principal. The second return
// value reports whether the input was a well-formed address.
func ParsePrincipal(s string) (Principal, bool) {
	if !common.IsHexAddress(s) {
		return Principal{}, false
	}
	return common.HexToAddress(s), true
}
