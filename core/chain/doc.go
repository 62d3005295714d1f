// Package chain defines the closed set of network types, networks, and
// naming schemes the monitor understands, together with their compatibility
// rules and address-format validation.
//
// # Model
//
//   - NetworkType: the blockchain family (evm, solana, aptos, starknet).
//     It decides whether addresses are case-insensitive and how they are
//     validated.
//   - Network: a concrete chain (ethereum, base, solana, ...), each belonging
//     to exactly one NetworkType.
//   - Naming: an account-labeling scheme (ens, sns, ...), each bound to one
//     Network and therefore one NetworkType.
//
// Coin identifiers encode their network as "<network>__<symbol>"; use
// NetworkOfCoinID to resolve it.
//
// All relations are static lookup tables, so compatibility checks
// (Naming.IsConsistent, Network.Type) never touch the database.
package chain
