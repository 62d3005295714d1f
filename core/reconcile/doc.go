// Package reconcile provides the diff-planning half of the reconciliation
// engine that keeps derived per-account rows consistent with a group's
// account list.
//
// # Model
//
// A group has an ordered account list and a set of attached keys (coin ids
// for balances, naming values for names). For every (key, account) pair a
// derived row must exist, and no row may exist for an account outside the
// list. Reconciliation is split in two:
//
//  1. Insertions, planned per key from a projection of already-known
//     accounts (PlanInsertions). Insertions preserve the account-list order
//     so runs are deterministic.
//  2. Deletions, issued by the caller as one filter-based bulk delete across
//     all keys ("account not in list"), using the same account-list snapshot
//     as the insertion plan.
//
// The resulting passes are idempotent and convergent rather than
// transactional: an interrupted pass leaves a state the next pass repairs.
package reconcile
