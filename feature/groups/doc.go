// Package groups manages groups of blockchain accounts and keeps their
// derived balance and name rows consistent with the group configuration.
//
// A group holds an account list, attached coins, and attached naming
// schemes, all constrained to one network type. For every (coin, account)
// pair an AccountBalance row exists, and for every (naming, account) pair an
// AccountName row; the reconciliation passes ProcessAccountBalances and
// ProcessAccountNames insert missing rows and delete stale ones whenever the
// configuration changes. All mutating operations run under a per-group lock
// and converge: re-running a pass without a configuration change is a no-op.
//
// The package also provides TOML export/import, zip archive import, and
// object-storage backed backup and import, plus read-only reporting over the
// collected balances.
package groups
