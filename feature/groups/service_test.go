package groups_test

import (
	"context"
	"testing"
	"time"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/core/database"
	"github.com/mcbarinov/accounts-monitor/core/locker"
	"github.com/mcbarinov/accounts-monitor/feature/coins"
	"github.com/mcbarinov/accounts-monitor/feature/groups"
	"github.com/mcbarinov/accounts-monitor/feature/groups/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	addr1 = "0x1111111111111111111111111111111111111111"
	addr2 = "0x2222222222222222222222222222222222222222"
	addr3 = "0x3333333333333333333333333333333333333333"
)

type testEnv struct {
	service *groups.Service
	store   *groups.Store
	coins   *coins.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&coins.Coin{}))

	store := groups.NewStore(db)
	require.NoError(t, store.Migrate())

	coinsSvc := coins.NewService(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, coinsSvc.Add(ctx, coins.Coin{ID: "ethereum__ETH", Network: chain.NetworkEthereum, Symbol: "ETH", Decimals: 18}))
	require.NoError(t, coinsSvc.Add(ctx, coins.Coin{ID: "ethereum__USDT", Network: chain.NetworkEthereum, Symbol: "USDT", Decimals: 6}))
	require.NoError(t, coinsSvc.Add(ctx, coins.Coin{ID: "solana__SOL", Network: chain.NetworkSolana, Symbol: "SOL", Decimals: 9}))

	svc := groups.NewService(store, coinsSvc, locker.New(), nil, "", zap.NewNop())
	return &testEnv{service: svc, store: store, coins: coinsSvc}
}

// requireConsistent asserts the core invariant: exactly one derived balance
// row per (attached coin, account) and one derived name row per (attached
// naming, account), and nothing else.
func requireConsistent(t *testing.T, env *testEnv, groupID string) {
	t.Helper()
	ctx := context.Background()

	group, err := env.store.GetGroup(ctx, groupID)
	require.NoError(t, err)

	balances, err := env.store.ListAccountBalances(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, balances, len(group.Coins)*len(group.Accounts))
	seen := map[[2]string]bool{}
	for _, row := range balances {
		assert.Contains(t, group.Coins, row.Coin)
		assert.Contains(t, group.Accounts, row.Account)
		key := [2]string{row.Coin, row.Account}
		assert.False(t, seen[key], "duplicate balance row for %v", key)
		seen[key] = true
	}

	names, err := env.store.ListAccountNames(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, names, len(group.Namings)*len(group.Accounts))
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("WithAttachments", func(t *testing.T) {
		group, err := env.service.CreateGroup(ctx, "treasury", chain.NetworkTypeEVM, "main wallets",
			[]chain.Naming{chain.NamingENS}, []string{"ethereum__ETH", "ethereum__USDT"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ethereum__ETH", "ethereum__USDT"}, group.Coins)
		assert.Equal(t, []chain.Naming{chain.NamingENS}, group.Namings)

		groupBalances, err := env.store.ListGroupBalances(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, groupBalances, 2)

		groupNames, err := env.store.ListGroupNames(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, groupNames, 1)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := env.service.CreateGroup(ctx, "treasury", chain.NetworkTypeEVM, "", nil, nil)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("IncompatibleCoin", func(t *testing.T) {
		_, err := env.service.CreateGroup(ctx, "bad-coins", chain.NetworkTypeEVM, "", nil, []string{"solana__SOL"})
		assert.True(t, apperr.IsValidation(err))

		exists, err := env.store.GroupExistsByName(ctx, "bad-coins")
		require.NoError(t, err)
		assert.False(t, exists, "fail-fast validation must not create the group")
	})

	t.Run("IncompatibleNaming", func(t *testing.T) {
		_, err := env.service.CreateGroup(ctx, "bad-namings", chain.NetworkTypeSolana, "", []chain.Naming{chain.NamingENS}, nil)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("UnknownNetworkType", func(t *testing.T) {
		_, err := env.service.CreateGroup(ctx, "bad-type", chain.NetworkType("cosmos"), "", nil, nil)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestUpdateAccounts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "ops", chain.NetworkTypeEVM, "",
		[]chain.Naming{chain.NamingENS}, []string{"ethereum__ETH"})
	require.NoError(t, err)

	t.Run("NormalizesCase", func(t *testing.T) {
		upper := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{upper, addr1}))

		updated, err := env.store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", addr1}, updated.Accounts)

		rows, err := env.store.ListAccountBalances(ctx, group.ID)
		require.NoError(t, err)
		for _, row := range rows {
			assert.Equal(t, row.Account, chain.NormalizeAddress(chain.NetworkTypeEVM, row.Account))
		}
		requireConsistent(t, env, group.ID)
	})

	t.Run("ShrinkDeletesStaleRows", func(t *testing.T) {
		require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1}))
		requireConsistent(t, env, group.ID)
	})

	t.Run("EmptyListRemovesAllRows", func(t *testing.T) {
		require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, nil))
		rows, err := env.store.ListAccountBalances(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("MissingGroup", func(t *testing.T) {
		err := env.service.UpdateAccounts(ctx, "no-such-id", []string{addr1})
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestReconcileIdempotence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "idem", chain.NetworkTypeEVM, "",
		[]chain.Naming{chain.NamingENS}, []string{"ethereum__ETH", "ethereum__USDT"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1, addr2}))

	second, err := env.service.ProcessAccountBalances(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, second.IsNoop(), "second balance pass must be a no-op, got %+v", second)

	secondNames, err := env.service.ProcessAccountNames(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, secondNames.IsNoop(), "second name pass must be a no-op, got %+v", secondNames)
}

func TestInvariantConvergence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "conv", chain.NetworkTypeEVM, "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1, addr2}))
	requireConsistent(t, env, group.ID)

	require.NoError(t, env.service.AddCoin(ctx, group.ID, "ethereum__ETH"))
	requireConsistent(t, env, group.ID)

	require.NoError(t, env.service.AddCoin(ctx, group.ID, "ethereum__USDT"))
	requireConsistent(t, env, group.ID)

	require.NoError(t, env.service.AddNaming(ctx, group.ID, chain.NamingENS))
	requireConsistent(t, env, group.ID)

	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr2, addr3}))
	requireConsistent(t, env, group.ID)

	require.NoError(t, env.service.RemoveCoin(ctx, group.ID, "ethereum__ETH"))
	requireConsistent(t, env, group.ID)

	require.NoError(t, env.service.RemoveNaming(ctx, group.ID, chain.NamingENS))
	requireConsistent(t, env, group.ID)
}

func TestAddCoin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "coins", chain.NetworkTypeEVM, "", nil, []string{"ethereum__ETH"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1}))

	t.Run("Duplicate", func(t *testing.T) {
		err := env.service.AddCoin(ctx, group.ID, "ethereum__ETH")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("WrongNetworkType", func(t *testing.T) {
		err := env.service.AddCoin(ctx, group.ID, "solana__SOL")
		assert.True(t, apperr.IsValidation(err))

		updated, err := env.store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ethereum__ETH"}, updated.Coins)
		requireConsistent(t, env, group.ID)
	})

	t.Run("UnknownCoin", func(t *testing.T) {
		// Referencing a coin the registry does not know is a validation
		// failure, not a missing-entity one, matching the import path.
		err := env.service.AddCoin(ctx, group.ID, "ethereum__DAI")
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestRemoveNamingUnattached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "lenient", chain.NetworkTypeEVM, "", nil, nil)
	require.NoError(t, err)

	// Removing a naming that was never attached is a lenient no-op.
	require.NoError(t, env.service.RemoveNaming(ctx, group.ID, chain.NamingENS))

	updated, err := env.store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Namings)
}

func TestUpdateCoins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "upd-coins", chain.NetworkTypeEVM, "", nil, []string{"ethereum__ETH"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1, addr2}))

	require.NoError(t, env.service.UpdateCoins(ctx, group.ID, []string{"ethereum__USDT"}))

	updated, err := env.store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum__USDT"}, updated.Coins)
	requireConsistent(t, env, group.ID)

	t.Run("WrongNetworkType", func(t *testing.T) {
		err := env.service.UpdateCoins(ctx, group.ID, []string{"solana__SOL"})
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestDeleteGroup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "doomed", chain.NetworkTypeEVM, "",
		[]chain.Naming{chain.NamingENS}, []string{"ethereum__ETH"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1, addr2}))

	require.NoError(t, env.service.DeleteGroup(ctx, group.ID))

	_, err = env.store.GetGroup(ctx, group.ID)
	assert.True(t, apperr.IsNotFound(err))

	balances, err := env.store.ListAccountBalances(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, balances)

	names, err := env.store.ListAccountNames(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	groupBalances, err := env.store.ListGroupBalances(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, groupBalances)

	groupNames, err := env.store.ListGroupNames(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, groupNames)

	// Deleting again is a no-op, not an error.
	require.NoError(t, env.service.DeleteGroup(ctx, group.ID))
}

func TestResetGroupBalances(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "reset", chain.NetworkTypeEVM, "", nil, []string{"ethereum__ETH"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1}))

	// Simulate the external balance checker filling in values.
	ten := decimal.NewFromInt(10)
	now := time.Now().UTC()
	require.NoError(t, env.store.DeleteGroupBalance(ctx, group.ID, "ethereum__ETH"))
	require.NoError(t, env.store.InsertGroupBalance(ctx, &models.GroupBalance{
		ID:        models.NewID(),
		GroupID:   group.ID,
		Coin:      "ethereum__ETH",
		Balances:  map[string]*decimal.Decimal{addr1: &ten},
		CheckedAt: map[string]*time.Time{addr1: &now},
	}))

	require.NoError(t, env.service.ResetGroupBalances(ctx, group.ID))

	groupBalances, err := env.store.ListGroupBalances(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, groupBalances, 1)
	assert.Empty(t, groupBalances[0].Balances)

	rows, err := env.store.ListAccountBalances(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Balance)
	assert.Nil(t, rows[0].BalanceRaw)
	assert.Nil(t, rows[0].CheckedAt)
}

func TestGetCoinCleanupInfo(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "cleanup", chain.NetworkTypeEVM, "", nil, []string{"ethereum__ETH"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{"0xa", "0xb", "0xc"}))

	ten := decimal.NewFromInt(10)
	t1 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.DeleteGroupBalance(ctx, group.ID, "ethereum__ETH"))
	require.NoError(t, env.store.InsertGroupBalance(ctx, &models.GroupBalance{
		ID:      models.NewID(),
		GroupID: group.ID,
		Coin:    "ethereum__ETH",
		// "0xb" was recorded as not-yet-known; "0xc" was never recorded.
		Balances:  map[string]*decimal.Decimal{"0xa": &ten, "0xb": nil},
		CheckedAt: map[string]*time.Time{"0xa": &t1},
	}))

	infos, err := env.service.GetCoinCleanupInfo(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	info := infos[0]
	assert.Equal(t, "ethereum__ETH", info.CoinID)
	assert.Equal(t, "ETH", info.CoinSymbol)
	assert.True(t, info.TotalBalance.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, info.OldestCheck)
	assert.True(t, info.OldestCheck.Equal(t1))
	assert.Equal(t, 2, info.UncheckedCount)
}

func TestGetGroupAccountsInfo(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "info", chain.NetworkTypeEVM, "", nil,
		[]string{"ethereum__ETH", "ethereum__USDT"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{"0xa", "0xb"}))

	ten := decimal.NewFromInt(10)
	five := decimal.NewFromInt(5)
	require.NoError(t, env.store.DeleteGroupBalance(ctx, group.ID, "ethereum__ETH"))
	require.NoError(t, env.store.InsertGroupBalance(ctx, &models.GroupBalance{
		ID:       models.NewID(),
		GroupID:  group.ID,
		Coin:     "ethereum__ETH",
		Balances: map[string]*decimal.Decimal{"0xa": &ten, "0xb": &five},
	}))

	name := "alice.eth"
	require.NoError(t, env.store.InsertAccountNames(ctx, []models.AccountName{{
		ID:      models.NewID(),
		GroupID: group.ID,
		Network: chain.NetworkEthereum,
		Naming:  chain.NamingENS,
		Account: "0xa",
		Name:    &name,
	}}))

	info, err := env.service.GetGroupAccountsInfo(ctx, group.ID)
	require.NoError(t, err)

	assert.True(t, info.CoinsSum["ethereum__ETH"].Equal(decimal.NewFromInt(15)))
	// A coin with an empty balances map gets no sum entry at all.
	_, hasUSDT := info.CoinsSum["ethereum__USDT"]
	assert.False(t, hasUSDT)

	require.NotNil(t, info.Balance("ethereum__ETH", "0xa"))
	assert.True(t, info.Balance("ethereum__ETH", "0xa").Equal(ten))
	assert.Nil(t, info.Balance("ethereum__ETH", "0xc"))

	assert.Equal(t, "alice.eth", info.Name(chain.NamingENS, "0xa"))
	assert.Equal(t, "", info.Name(chain.NamingENS, "0xb"))

	assert.Contains(t, info.CoinsMap, "ethereum__ETH")
}

func TestRemoveCoinsBulk(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	group, err := env.service.CreateGroup(ctx, "bulk", chain.NetworkTypeEVM, "", nil,
		[]string{"ethereum__ETH", "ethereum__USDT"})
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateAccounts(ctx, group.ID, []string{addr1}))

	// Removal is lenient about unattached coins, so the unknown id counts as
	// a success (a no-op one).
	result, err := env.service.RemoveCoinsBulk(ctx, group.ID, []string{"ethereum__ETH", "ethereum__DAI"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Removed())

	updated, err := env.store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum__USDT"}, updated.Coins)
	requireConsistent(t, env, group.ID)

	t.Run("MissingGroup", func(t *testing.T) {
		result, err := env.service.RemoveCoinsBulk(ctx, "no-such-id", []string{"ethereum__ETH"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, 0, result.Removed())
		assert.True(t, apperr.IsNotFound(result.Items[0].Err))
	})
}
