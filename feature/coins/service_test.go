package coins_test

import (
	"context"
	"testing"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/core/database"
	"github.com/mcbarinov/accounts-monitor/feature/coins"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *coins.Service {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&coins.Coin{}))
	return coins.NewService(db, zap.NewNop())
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	eth := coins.Coin{ID: "ethereum__ETH", Network: chain.NetworkEthereum, Symbol: "ETH", Decimals: 18}
	usdt := coins.Coin{ID: "ethereum__USDT", Network: chain.NetworkEthereum, Symbol: "USDT", Decimals: 6, Token: "0xdac17f958d2ee523a2206206994597c13d831ec7"}
	sol := coins.Coin{ID: "solana__SOL", Network: chain.NetworkSolana, Symbol: "SOL", Decimals: 9}

	require.NoError(t, svc.Add(ctx, eth))
	require.NoError(t, svc.Add(ctx, usdt))
	require.NoError(t, svc.Add(ctx, sol))

	t.Run("Get", func(t *testing.T) {
		coin, err := svc.Get(ctx, "ethereum__USDT")
		assert.NoError(t, err)
		assert.Equal(t, chain.NetworkEthereum, coin.Network)
		assert.Equal(t, "USDT", coin.Symbol)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := svc.Get(ctx, "ethereum__DAI")
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("List", func(t *testing.T) {
		all, err := svc.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("ByNetworks", func(t *testing.T) {
		result, err := svc.ByNetworks(ctx, chain.NetworksOf(chain.NetworkTypeEVM))
		assert.NoError(t, err)
		assert.Len(t, result, 2)

		result, err = svc.ByNetworks(ctx, []chain.Network{chain.NetworkSolana})
		assert.NoError(t, err)
		assert.Len(t, result, 1)
		assert.Equal(t, "solana__SOL", result[0].ID)
	})

	t.Run("Unknown", func(t *testing.T) {
		unknown, err := svc.Unknown(ctx, []string{"ethereum__ETH", "ethereum__DAI", "polygon__POL"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"ethereum__DAI", "polygon__POL"}, unknown)
	})

	t.Run("AddDuplicate", func(t *testing.T) {
		err := svc.Add(ctx, eth)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("AddMismatchedID", func(t *testing.T) {
		err := svc.Add(ctx, coins.Coin{ID: "ethereum__DAI", Network: chain.NetworkPolygon, Symbol: "DAI"})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("AddUnknownNetwork", func(t *testing.T) {
		err := svc.Add(ctx, coins.Coin{ID: "dogechain__DOGE", Network: "dogechain", Symbol: "DOGE"})
		assert.True(t, apperr.IsValidation(err))
	})
}
