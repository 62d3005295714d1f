// Package coins implements the coin reference registry.
//
// Coins are read-only reference entities for the rest of the system: the
// groups feature resolves coin ids through this registry to validate network
// compatibility and to find which networks derived rows belong to. The only
// mutation is registering a new coin.
//
// # Components
//
//   - Service: lookup (Get, List, Map, ByNetworks, Unknown) and Add.
//   - Handler: GET /coins, POST /coins.
package coins
