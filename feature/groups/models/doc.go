// Package models defines the five persisted collections of the groups
// feature: the Group configuration document, the per-attachment markers
// (GroupBalance, GroupName), and the derived per-account rows
// (AccountBalance, AccountName) whose existence is implied by
// (group membership x attachment).
//
// Map- and list-valued fields persist as JSON-serialized columns, keeping
// the aggregate/detail duality of the original document model: GroupBalance
// carries account-keyed maps while AccountBalance carries per-account
// detail rows.
package models
