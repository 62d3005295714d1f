package groups

import (
	"context"
	"time"

	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/feature/coins"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GroupAccountsInfo is a read-only projection of the collected balances and
// names of a group.
type GroupAccountsInfo struct {
	// CoinsMap indexes the coin registry by coin id, for presentation.
	CoinsMap map[string]coins.Coin `json:"coins_map"`
	// CoinsSum holds the per-coin total over present balances. A coin whose
	// balances map is empty has no entry here.
	CoinsSum map[string]decimal.Decimal `json:"coins_sum"`
	// Balances maps coin -> account -> balance.
	Balances map[string]map[string]decimal.Decimal `json:"balances"`
	// Names maps naming -> account -> resolved name.
	Names map[chain.Naming]map[string]string `json:"names"`
}

// Balance returns the collected balance for the coin and account, or nil
// when none was collected yet.
func (i *GroupAccountsInfo) Balance(coin, account string) *decimal.Decimal {
	if b, ok := i.Balances[coin][account]; ok {
		return &b
	}
	return nil
}

// Name returns the resolved name for the naming and account, or "" when none
// was resolved yet.
func (i *GroupAccountsInfo) Name(naming chain.Naming, account string) string {
	return i.Names[naming][account]
}

// CoinCleanupInfo summarizes one attached coin for the cleanup view: how
// much the coin holds across the group and how stale its checks are.
type CoinCleanupInfo struct {
	CoinID     string `json:"coin_id"`
	CoinSymbol string `json:"coin_symbol"`
	// TotalBalance sums the collected balances, treating absent and null
	// entries as zero.
	TotalBalance decimal.Decimal `json:"total_balance"`
	// OldestCheck is the minimum over present check timestamps, nil when no
	// account was checked yet.
	OldestCheck *time.Time `json:"oldest_check"`
	// UncheckedCount counts accounts with no check entry at all or an
	// explicitly null one. The two states are distinct in the schema (never
	// recorded vs recorded as not-yet-checked) and both count as unchecked.
	UncheckedCount int `json:"unchecked_count"`
}

// BulkRemoveItem is the outcome of one coin in a bulk removal.
type BulkRemoveItem struct {
	CoinID string `json:"coin_id"`
	Err    error  `json:"-"`
}

// BulkRemoveResult carries the per-coin outcomes of RemoveCoinsBulk.
type BulkRemoveResult struct {
	Items []BulkRemoveItem `json:"items"`
}

// Removed returns the number of coins removed successfully.
func (r BulkRemoveResult) Removed() int {
	n := 0
	for _, item := range r.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// GetGroupAccountsInfo projects the group's aggregate rows into per-coin
// balance maps with totals and per-naming name maps. Read-only, no locking.
func (s *Service) GetGroupAccountsInfo(ctx context.Context, groupID string) (*GroupAccountsInfo, error) {
	info := &GroupAccountsInfo{
		CoinsSum: map[string]decimal.Decimal{},
		Balances: map[string]map[string]decimal.Decimal{},
		Names:    map[chain.Naming]map[string]string{},
	}

	groupBalances, err := s.store.ListGroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, gb := range groupBalances {
		balances := map[string]decimal.Decimal{}
		sum := decimal.Zero
		for account, balance := range gb.Balances {
			if balance == nil {
				continue
			}
			balances[account] = *balance
			sum = sum.Add(*balance)
		}
		info.Balances[gb.Coin] = balances
		// An empty balances map means nothing was collected for the coin; it
		// gets no sum entry rather than a zero one.
		if len(gb.Balances) > 0 {
			info.CoinsSum[gb.Coin] = sum
		}
	}

	accountNames, err := s.store.ListAccountNames(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, an := range accountNames {
		if an.Name == nil {
			continue
		}
		names, ok := info.Names[an.Naming]
		if !ok {
			names = map[string]string{}
			info.Names[an.Naming] = names
		}
		names[an.Account] = *an.Name
	}

	coinsMap, err := s.coins.Map(ctx)
	if err != nil {
		return nil, err
	}
	info.CoinsMap = coinsMap
	return info, nil
}

// GetCoinCleanupInfo reports, per attached coin, the total collected balance
// (null as zero), the oldest check timestamp, and how many of the group's
// accounts are unchecked.
func (s *Service) GetCoinCleanupInfo(ctx context.Context, groupID string) ([]CoinCleanupInfo, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	groupBalances, err := s.store.ListGroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}

	infos := make([]CoinCleanupInfo, 0, len(groupBalances))
	for _, gb := range groupBalances {
		coin, err := s.coins.Get(ctx, gb.Coin)
		if err != nil {
			return nil, err
		}

		total := decimal.Zero
		for _, balance := range gb.Balances {
			if balance != nil {
				total = total.Add(*balance)
			}
		}

		var oldest *time.Time
		for _, checked := range gb.CheckedAt {
			if checked == nil {
				continue
			}
			if oldest == nil || checked.Before(*oldest) {
				oldest = checked
			}
		}

		unchecked := 0
		for _, account := range group.Accounts {
			if checked, ok := gb.CheckedAt[account]; !ok || checked == nil {
				unchecked++
			}
		}

		infos = append(infos, CoinCleanupInfo{
			CoinID:         gb.Coin,
			CoinSymbol:     coin.Symbol,
			TotalBalance:   total,
			OldestCheck:    oldest,
			UncheckedCount: unchecked,
		})
	}
	return infos, nil
}

// RemoveCoinsBulk removes each coin independently, continuing past
// individual failures. The result lists every attempted coin with its
// outcome so callers can tell which ones failed.
func (s *Service) RemoveCoinsBulk(ctx context.Context, groupID string, coinIDs []string) (BulkRemoveResult, error) {
	unlock := s.locks.Acquire(groupID)
	defer unlock()

	var result BulkRemoveResult
	for _, coinID := range coinIDs {
		err := s.removeCoin(ctx, groupID, coinID)
		if err != nil {
			s.logger.Warn("bulk coin removal item failed",
				zap.String("group_id", groupID),
				zap.String("coin_id", coinID),
				zap.Error(err))
		}
		result.Items = append(result.Items, BulkRemoveItem{CoinID: coinID, Err: err})
	}
	return result, nil
}
