package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidAddress reports whether the address is well-formed for the given
// network type. It checks format only; it does not verify the address exists
// on any chain.
func ValidAddress(nt NetworkType, address string) bool {
	switch nt {
	case NetworkTypeEVM:
		return common.IsHexAddress(address)
	case NetworkTypeSolana:
		if len(address) < 32 || len(address) > 44 {
			return false
		}
		for _, r := range address {
			if !strings.ContainsRune(base58Alphabet, r) {
				return false
			}
		}
		return true
	case NetworkTypeAptos, NetworkTypeStarknet:
		return isHexAccount(address)
	default:
		return false
	}
}

// isHexAccount accepts 0x-prefixed hex of up to 32 bytes. Aptos and Starknet
// allow short forms with leading zeros stripped.
func isHexAccount(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	hex := address[2:]
	if len(hex) == 0 || len(hex) > 64 {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeAddress trims surrounding whitespace and lower-cases the address
// when the network type treats addresses as case-insensitive. It must be
// applied before any row is written so lookups stay exact-match.
func NormalizeAddress(nt NetworkType, address string) string {
	address = strings.TrimSpace(address)
	if nt.LowercaseAddress() {
		address = strings.ToLower(address)
	}
	return address
}

// NormalizeAddresses applies NormalizeAddress to every element, preserving
// order.
func NormalizeAddresses(nt NetworkType, addresses []string) []string {
	result := make([]string, len(addresses))
	for i, a := range addresses {
		result[i] = NormalizeAddress(nt, a)
	}
	return result
}

// FindInvalidAddress returns the first address that fails format validation,
// or an empty string if all are valid.
func FindInvalidAddress(nt NetworkType, addresses []string) string {
	for _, a := range addresses {
		if !ValidAddress(nt, a) {
			return a
		}
	}
	return ""
}
