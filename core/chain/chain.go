package chain

import (
	"fmt"
	"strings"
)

// NetworkType is the blockchain family a network belongs to. It governs
// address format and case sensitivity for every network of that family.
type NetworkType string

const (
	NetworkTypeEVM      NetworkType = "evm"
	NetworkTypeSolana   NetworkType = "solana"
	NetworkTypeAptos    NetworkType = "aptos"
	NetworkTypeStarknet NetworkType = "starknet"
)

// AllNetworkTypes lists every supported network type.
func AllNetworkTypes() []NetworkType {
	return []NetworkType{NetworkTypeEVM, NetworkTypeSolana, NetworkTypeAptos, NetworkTypeStarknet}
}

// ParseNetworkType converts a string into a NetworkType.
func ParseNetworkType(s string) (NetworkType, error) {
	nt := NetworkType(strings.ToLower(strings.TrimSpace(s)))
	switch nt {
	case NetworkTypeEVM, NetworkTypeSolana, NetworkTypeAptos, NetworkTypeStarknet:
		return nt, nil
	default:
		return "", fmt.Errorf("unknown network type: %q", s)
	}
}

// IsValid reports whether the value is one of the supported network types.
func (nt NetworkType) IsValid() bool {
	_, err := ParseNetworkType(string(nt))
	return err == nil
}

// LowercaseAddress reports whether addresses of this network type are
// case-insensitive and must be stored lower-cased. Solana addresses are
// base58 and case-significant; hex-based families are not.
func (nt NetworkType) LowercaseAddress() bool {
	return nt != NetworkTypeSolana
}

// Network is a concrete blockchain network.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkArbitrum Network = "arbitrum"
	NetworkBase     Network = "base"
	NetworkPolygon  Network = "polygon"
	NetworkSolana   Network = "solana"
	NetworkAptos    Network = "aptos"
	NetworkStarknet Network = "starknet"
)

var networkTypes = map[Network]NetworkType{
	NetworkEthereum: NetworkTypeEVM,
	NetworkArbitrum: NetworkTypeEVM,
	NetworkBase:     NetworkTypeEVM,
	NetworkPolygon:  NetworkTypeEVM,
	NetworkSolana:   NetworkTypeSolana,
	NetworkAptos:    NetworkTypeAptos,
	NetworkStarknet: NetworkTypeStarknet,
}

// AllNetworks lists every supported network in a stable order.
func AllNetworks() []Network {
	return []Network{
		NetworkEthereum, NetworkArbitrum, NetworkBase, NetworkPolygon,
		NetworkSolana, NetworkAptos, NetworkStarknet,
	}
}

// Type returns the network type of the network.
func (n Network) Type() NetworkType {
	return networkTypes[n]
}

// IsValid reports whether the value is a known network.
func (n Network) IsValid() bool {
	_, ok := networkTypes[n]
	return ok
}

// NetworksOf returns all networks belonging to the given network type.
func NetworksOf(nt NetworkType) []Network {
	var result []Network
	for _, n := range AllNetworks() {
		if n.Type() == nt {
			result = append(result, n)
		}
	}
	return result
}

// coinIDSeparator splits the network prefix from the symbol in a coin id,
// e.g. "ethereum__USDT".
const coinIDSeparator = "__"

// NetworkOfCoinID extracts the network from a coin id of the form
// "<network>__<symbol>".
func NetworkOfCoinID(coinID string) (Network, error) {
	prefix, _, found := strings.Cut(coinID, coinIDSeparator)
	if !found {
		return "", fmt.Errorf("malformed coin id: %q", coinID)
	}
	n := Network(prefix)
	if !n.IsValid() {
		return "", fmt.Errorf("unknown network %q in coin id %q", prefix, coinID)
	}
	return n, nil
}

// CoinID builds a coin id from a network and symbol.
func CoinID(n Network, symbol string) string {
	return string(n) + coinIDSeparator + symbol
}

// Naming is an account-labeling scheme (a name service) bound to a single
// network.
type Naming string

const (
	NamingENS        Naming = "ens"
	NamingBaseNS     Naming = "base_ns"
	NamingSNS        Naming = "sns"
	NamingANS        Naming = "ans"
	NamingStarknetID Naming = "starknet_id"
)

var namingNetworks = map[Naming]Network{
	NamingENS:        NetworkEthereum,
	NamingBaseNS:     NetworkBase,
	NamingSNS:        NetworkSolana,
	NamingANS:        NetworkAptos,
	NamingStarknetID: NetworkStarknet,
}

// AllNamings lists every supported naming scheme in a stable order.
func AllNamings() []Naming {
	return []Naming{NamingENS, NamingBaseNS, NamingSNS, NamingANS, NamingStarknetID}
}

// ParseNaming converts a string into a Naming.
func ParseNaming(s string) (Naming, error) {
	n := Naming(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := namingNetworks[n]; !ok {
		return "", fmt.Errorf("unknown naming: %q", s)
	}
	return n, nil
}

// Network returns the network the naming scheme resolves names on.
func (n Naming) Network() Network {
	return namingNetworks[n]
}

// NetworkType returns the network type of the naming's network.
func (n Naming) NetworkType() NetworkType {
	return namingNetworks[n].Type()
}

// IsConsistent reports whether the naming applies to accounts of the given
// network type.
func (n Naming) IsConsistent(nt NetworkType) bool {
	return n.NetworkType() == nt
}

// NamingsOf returns all naming schemes applicable to the given network type.
func NamingsOf(nt NetworkType) []Naming {
	var result []Naming
	for _, n := range AllNamings() {
		if n.IsConsistent(nt) {
			result = append(result, n)
		}
	}
	return result
}
