package groups_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/core/database"
	"github.com/mcbarinov/accounts-monitor/core/locker"
	"github.com/mcbarinov/accounts-monitor/core/storage/mocks"
	"github.com/mcbarinov/accounts-monitor/feature/coins"
	"github.com/mcbarinov/accounts-monitor/feature/groups"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newTestEnv(t)

	group, err := source.service.CreateGroup(ctx, "treasury", chain.NetworkTypeEVM, "main wallets",
		[]chain.Naming{chain.NamingENS}, []string{"ethereum__ETH", "ethereum__USDT"})
	require.NoError(t, err)
	require.NoError(t, source.service.UpdateAccounts(ctx, group.ID, []string{addr1, addr2}))

	doc, err := source.service.ExportTOML(ctx)
	require.NoError(t, err)
	assert.Contains(t, doc, "treasury")
	assert.Contains(t, doc, addr1)

	target := newTestEnv(t)
	count, err := target.service.ImportTOML(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	imported, err := target.service.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "treasury", imported[0].Name)
	assert.Equal(t, "main wallets", imported[0].Notes)
	assert.Equal(t, []string{"ethereum__ETH", "ethereum__USDT"}, imported[0].Coins)
	assert.Equal(t, []chain.Naming{chain.NamingENS}, imported[0].Namings)
	assert.Equal(t, []string{addr1, addr2}, imported[0].Accounts)
	requireConsistent(t, target, imported[0].ID)
}

func TestImportTOML(t *testing.T) {
	ctx := context.Background()

	t.Run("SkipsExisting", func(t *testing.T) {
		env := newTestEnv(t)
		doc := `
[[groups]]
name = "ops"
network_type = "evm"
notes = ""
coins = "ethereum__ETH"
namings = ""
accounts = "` + addr1 + `"
`
		count, err := env.service.ImportTOML(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// The second import finds the group by name and skips it.
		count, err = env.service.ImportTOML(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		all, err := env.service.ListGroups(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("UnknownCoins", func(t *testing.T) {
		env := newTestEnv(t)
		doc := `
[[groups]]
name = "bad"
network_type = "evm"
notes = ""
coins = """
ethereum__DAI
ethereum__WBTC"""
namings = ""
accounts = ""
`
		_, err := env.service.ImportTOML(ctx, doc)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Contains(t, err.Error(), "ethereum__DAI")
		assert.Contains(t, err.Error(), "ethereum__WBTC")

		all, err := env.service.ListGroups(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("NormalizesAccounts", func(t *testing.T) {
		env := newTestEnv(t)
		doc := `
[[groups]]
name = "mixed"
network_type = "evm"
notes = ""
coins = ""
namings = ""
accounts = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
`
		count, err := env.service.ImportTOML(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		all, err := env.service.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}, all[0].Accounts)
	})

	t.Run("Malformed", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.service.ImportTOML(ctx, "not toml [[")
		assert.True(t, apperr.IsValidation(err))
	})
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "import.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestImportZip(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesGroupsWithCompatibleAttachments", func(t *testing.T) {
		env := newTestEnv(t)
		path := writeZip(t, map[string]string{
			"evm/team.txt": addr1 + "\n" + addr2 + "\n",
			"evm/ops.txt":  addr3 + "\n",
			"readme.md":    "ignored",
		})

		count, err := env.service.ImportZip(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		// The archive is single-use input and must be gone.
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))

		all, err := env.service.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		for _, group := range all {
			assert.Equal(t, chain.NetworkTypeEVM, group.NetworkType)
			// All evm-compatible coins and namings are attached automatically.
			assert.ElementsMatch(t, []string{"ethereum__ETH", "ethereum__USDT"}, group.Coins)
			assert.ElementsMatch(t, chain.NamingsOf(chain.NetworkTypeEVM), group.Namings)
			requireConsistent(t, env, group.ID)
		}
	})

	t.Run("SkipsExistingGroups", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.service.CreateGroup(ctx, "team", chain.NetworkTypeEVM, "", nil, nil)
		require.NoError(t, err)

		path := writeZip(t, map[string]string{"evm/team.txt": addr1 + "\n"})
		count, err := env.service.ImportZip(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("AbortsOnInvalidAddress", func(t *testing.T) {
		env := newTestEnv(t)
		path := writeZip(t, map[string]string{"evm/bad.txt": "not-an-address\n"})

		_, err := env.service.ImportZip(ctx, path)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Contains(t, err.Error(), "not-an-address")

		// Removed even on failure.
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func newStorageEnv(t *testing.T) (*testEnv, *mocks.Client) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&coins.Coin{}))

	store := groups.NewStore(db)
	require.NoError(t, store.Migrate())

	coinsSvc := coins.NewService(db, zap.NewNop())
	require.NoError(t, coinsSvc.Add(context.Background(), coins.Coin{ID: "ethereum__ETH", Network: chain.NetworkEthereum, Symbol: "ETH", Decimals: 18}))

	client := new(mocks.Client)
	svc := groups.NewService(store, coinsSvc, locker.New(), client, "accounts-monitor", zap.NewNop())
	return &testEnv{service: svc, store: store, coins: coinsSvc}, client
}

func TestImportFromStorage(t *testing.T) {
	ctx := context.Background()
	env, client := newStorageEnv(t)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("evm/remote.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte(addr1 + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	objects := make(chan minio.ObjectInfo, 2)
	objects <- minio.ObjectInfo{Key: "import/batch.zip"}
	objects <- minio.ObjectInfo{Key: "import/notes.txt"}
	close(objects)

	client.On("ListObjects", mock.Anything, "accounts-monitor", mock.Anything).
		Return((<-chan minio.ObjectInfo)(objects))
	client.On("GetObject", mock.Anything, "accounts-monitor", "import/batch.zip", mock.Anything).
		Return(io.NopCloser(bytes.NewReader(buf.Bytes())), nil)
	client.On("RemoveObject", mock.Anything, "accounts-monitor", "import/batch.zip", mock.Anything).
		Return(nil)

	count, err := env.service.ImportFromStorage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	all, err := env.service.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "remote", all[0].Name)

	client.AssertExpectations(t)
}

func TestBackupToStorage(t *testing.T) {
	ctx := context.Background()
	env, client := newStorageEnv(t)

	_, err := env.service.CreateGroup(ctx, "backup-me", chain.NetworkTypeEVM, "", nil, nil)
	require.NoError(t, err)

	client.On("PutObject", mock.Anything, "accounts-monitor", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "backup/groups-") && strings.HasSuffix(key, ".toml")
	}), mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

	key, err := env.service.BackupToStorage(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "backup/groups-"))

	client.AssertExpectations(t)
}
