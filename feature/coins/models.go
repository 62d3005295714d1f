package coins

import (
	"github.com/mcbarinov/accounts-monitor/core/chain"
)

// Coin is a monitored asset tied to a specific network. Coins are reference
// data: groups attach them by id but never modify them.
type Coin struct {
	// ID is "<network>__<symbol>", e.g. "ethereum__USDT".
	ID string `gorm:"primaryKey;size:64" json:"id"`
	// Network is the chain the coin lives on.
	Network chain.Network `gorm:"size:32;index" json:"network"`
	// Symbol is the ticker, unique per network.
	Symbol string `gorm:"size:32" json:"symbol"`
	// Decimals is the number of decimal places of the on-chain amount.
	Decimals int `json:"decimals"`
	// Token is the contract address; empty for the native coin.
	Token string `gorm:"size:128" json:"token"`
}

// TableName overrides the default pluralization.
func (Coin) TableName() string {
	return "coins"
}
