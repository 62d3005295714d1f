package models

import (
	"time"

	"github.com/mcbarinov/accounts-monitor/core/chain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewID returns a fresh opaque row identifier.
func NewID() string {
	return uuid.New().String()
}

// Group is a named collection of accounts under one network type, with
// attached coins and naming schemes. NetworkType is immutable after
// creation; Accounts, Coins, and Namings change only through the group
// service mutators so derived rows stay reconciled.
type Group struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// Name is unique across all groups.
	Name        string            `gorm:"uniqueIndex;size:255" json:"name"`
	NetworkType chain.NetworkType `gorm:"size:16" json:"network_type"`
	Notes       string            `json:"notes"`
	// Accounts is the ordered address list. Addresses are stored normalized
	// (lower-cased when the network type is case-insensitive). Uniqueness is
	// not enforced at this layer.
	Accounts []string `gorm:"serializer:json" json:"accounts"`
	// Coins holds attached coin ids.
	Coins []string `gorm:"serializer:json" json:"coins"`
	// Namings holds attached naming schemes.
	Namings   []chain.Naming `gorm:"serializer:json" json:"namings"`
	CreatedAt time.Time      `json:"created_at"`
}

// GroupBalance is the per-coin aggregate container for a group. Its map keys
// are reconciled against Group.Accounts; the values are owned by the external
// balance checker (a nil value means checked-but-empty is still pending).
type GroupBalance struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	GroupID string `gorm:"size:36;index" json:"group_id"`
	Coin    string `gorm:"size:64;index" json:"coin"`
	// Balances maps account to its last known balance; a nil entry means the
	// balance was recorded as not-yet-known.
	Balances map[string]*decimal.Decimal `gorm:"serializer:json" json:"balances"`
	// CheckedAt maps account to its last check time; a nil entry means the
	// account was recorded but never successfully checked.
	CheckedAt map[string]*time.Time `gorm:"serializer:json" json:"checked_at"`
}

// GroupName marks a naming scheme as attached to a group. It is a pure
// attachment marker: per-account names live on AccountName rows.
type GroupName struct {
	ID      string       `gorm:"primaryKey;size:36" json:"id"`
	GroupID string       `gorm:"size:36;index" json:"group_id"`
	Naming  chain.Naming `gorm:"size:32;index" json:"naming"`
}

// AccountBalance is a derived row: one per (group, coin, account). The
// existence of the row is owned by the reconciliation engine; Balance,
// BalanceRaw, and CheckedAt are filled in by the external balance checker.
type AccountBalance struct {
	ID      string        `gorm:"primaryKey;size:36" json:"id"`
	GroupID string        `gorm:"size:36;index" json:"group_id"`
	Network chain.Network `gorm:"size:32" json:"network"`
	Coin    string        `gorm:"size:64;index" json:"coin"`
	Account string        `gorm:"size:128;index" json:"account"`

	Balance    *decimal.Decimal `json:"balance"`
	BalanceRaw *string          `gorm:"size:128" json:"balance_raw"`
	CheckedAt  *time.Time       `json:"checked_at"`
}

// AccountName is a derived row: one per (group, naming, account). Name is
// filled in by the external name resolver.
type AccountName struct {
	ID      string        `gorm:"primaryKey;size:36" json:"id"`
	GroupID string        `gorm:"size:36;index" json:"group_id"`
	Network chain.Network `gorm:"size:32" json:"network"`
	Naming  chain.Naming  `gorm:"size:32;index" json:"naming"`
	Account string        `gorm:"size:128;index" json:"account"`

	Name *string `gorm:"size:255" json:"name"`
}

// All lists every model of the feature for migration.
func All() []any {
	return []any{&Group{}, &GroupBalance{}, &GroupName{}, &AccountBalance{}, &AccountName{}}
}
