package groups

import (
	"context"
	"slices"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/core/locker"
	"github.com/mcbarinov/accounts-monitor/core/reconcile"
	"github.com/mcbarinov/accounts-monitor/core/storage"
	"github.com/mcbarinov/accounts-monitor/feature/coins"
	"github.com/mcbarinov/accounts-monitor/feature/groups/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service handles group lifecycle, attachment mutations, and the
// reconciliation of derived rows. Every mutating operation runs under the
// per-group mutation lock; reads do not.
type Service struct {
	store  *Store
	coins  *coins.Service
	locks  *locker.Keyed
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewService creates a new groups service.
func NewService(store *Store, coinsSvc *coins.Service, locks *locker.Keyed, client storage.Client, bucket string, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		coins:  coinsSvc,
		locks:  locks,
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// GetGroup returns the group with the given id.
func (s *Service) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.store.GetGroup(ctx, id)
}

// ListGroups returns all groups.
func (s *Service) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.store.ListGroups(ctx)
}

// CreateGroup validates that every naming and coin is compatible with the
// network type (failing fast on the first incompatible item), creates the
// group, then attaches each naming and coin sequentially. A partial failure
// leaves the group with a subset of attachments; recovery is delete and
// recreate, there is no automatic rollback.
func (s *Service) CreateGroup(ctx context.Context, name string, networkType chain.NetworkType, notes string, namings []chain.Naming, coinIDs []string) (*models.Group, error) {
	if !networkType.IsValid() {
		return nil, apperr.Validationf("unknown network type: %s", networkType)
	}
	for _, naming := range namings {
		if !naming.IsConsistent(networkType) {
			return nil, apperr.Validationf("naming %s is not consistent with the network type %s", naming, networkType)
		}
	}
	for _, coinID := range coinIDs {
		coin, err := s.coins.Get(ctx, coinID)
		if apperr.IsNotFound(err) {
			return nil, apperr.Validationf("unknown coin: %s", coinID)
		}
		if err != nil {
			return nil, err
		}
		if coin.Network.Type() != networkType {
			return nil, apperr.Validationf("coin %s is not consistent with the network type %s", coinID, networkType)
		}
	}

	exists, err := s.store.GroupExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Validationf("group %s already exists", name)
	}

	group := &models.Group{ID: models.NewID(), Name: name, NetworkType: networkType, Notes: notes}

	unlock := s.locks.Acquire(group.ID)
	defer unlock()

	if err := s.store.InsertGroup(ctx, group); err != nil {
		return nil, err
	}
	for _, naming := range namings {
		if err := s.addNaming(ctx, group.ID, naming); err != nil {
			return nil, err
		}
	}
	for _, coinID := range coinIDs {
		if err := s.addCoin(ctx, group.ID, coinID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("name", name))
	return s.store.GetGroup(ctx, group.ID)
}

// DeleteGroup removes the group and every row in the four derived
// collections referencing it. The bulk deletes are independent and run
// concurrently; the group document goes last so an interrupted delete leaves
// a safely re-deletable empty shell. Deleting an absent group is a no-op.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	unlock := s.locks.Acquire(id)
	defer unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.DeleteAccountBalances(gctx, id)
		return err
	})
	g.Go(func() error {
		_, err := s.store.DeleteAccountNames(gctx, id)
		return err
	})
	g.Go(func() error {
		_, err := s.store.DeleteGroupNames(gctx, id)
		return err
	})
	g.Go(func() error {
		_, err := s.store.DeleteGroupBalances(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.store.DeleteGroupDoc(ctx, id); err != nil {
		return err
	}
	s.logger.Info("group deleted", zap.String("group_id", id))
	return nil
}

// UpdateAccounts normalizes the addresses per the group's network type,
// replaces the account list, and reconciles both derived collections.
func (s *Service) UpdateAccounts(ctx context.Context, id string, accounts []string) error {
	unlock := s.locks.Acquire(id)
	defer unlock()
	return s.updateAccounts(ctx, id, accounts)
}

func (s *Service) updateAccounts(ctx context.Context, id string, accounts []string) error {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	accounts = chain.NormalizeAddresses(group.NetworkType, accounts)
	if err := s.store.SetAccounts(ctx, id, accounts); err != nil {
		return err
	}
	s.logger.Debug("accounts updated", zap.String("group_id", id), zap.Int("count", len(accounts)))

	if _, err := s.processAccountBalances(ctx, id); err != nil {
		return err
	}
	_, err = s.processAccountNames(ctx, id)
	return err
}

// AddCoin attaches a coin to the group. The coin must exist, belong to the
// group's network type, and not be attached yet.
func (s *Service) AddCoin(ctx context.Context, groupID, coinID string) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()
	return s.addCoin(ctx, groupID, coinID)
}

func (s *Service) addCoin(ctx context.Context, groupID, coinID string) error {
	coin, err := s.coins.Get(ctx, coinID)
	if apperr.IsNotFound(err) {
		return apperr.Validationf("unknown coin: %s", coinID)
	}
	if err != nil {
		return err
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if coin.Network.Type() != group.NetworkType {
		return apperr.Validationf("coin %s is not from the network type %s", coinID, group.NetworkType)
	}
	if slices.Contains(group.Coins, coinID) {
		return apperr.Validationf("coin %s already in group %s", coinID, group.Name)
	}

	if err := s.store.SetCoins(ctx, groupID, append(group.Coins, coinID)); err != nil {
		return err
	}
	if err := s.store.InsertGroupBalance(ctx, &models.GroupBalance{
		ID:      models.NewID(),
		GroupID: groupID,
		Coin:    coinID,
	}); err != nil {
		return err
	}

	// The new coin has no derived rows yet, so the whole account list can be
	// inserted directly without the known-accounts round trip a full
	// reconciliation pass would make.
	if len(group.Accounts) > 0 {
		rows := make([]models.AccountBalance, 0, len(group.Accounts))
		for _, account := range group.Accounts {
			rows = append(rows, models.AccountBalance{
				ID:      models.NewID(),
				GroupID: groupID,
				Network: coin.Network,
				Coin:    coinID,
				Account: account,
			})
		}
		if err := s.store.InsertAccountBalances(ctx, rows); err != nil {
			return err
		}
	}
	s.logger.Debug("coin added", zap.String("group_id", groupID), zap.String("coin_id", coinID))
	return nil
}

// RemoveCoin detaches a coin. Derived rows go first, then the aggregate row,
// then the attachment itself: an interrupted removal may leave extra rows
// (repaired by re-running the removal) but never an absent marker with
// orphaned rows.
func (s *Service) RemoveCoin(ctx context.Context, groupID, coinID string) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()
	return s.removeCoin(ctx, groupID, coinID)
}

func (s *Service) removeCoin(ctx context.Context, groupID, coinID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteAccountBalancesByCoin(ctx, groupID, coinID); err != nil {
		return err
	}
	if err := s.store.DeleteGroupBalance(ctx, groupID, coinID); err != nil {
		return err
	}
	remaining := slices.DeleteFunc(slices.Clone(group.Coins), func(id string) bool { return id == coinID })
	if err := s.store.SetCoins(ctx, groupID, remaining); err != nil {
		return err
	}
	s.logger.Debug("coin removed", zap.String("group_id", groupID), zap.String("coin_id", coinID))
	return nil
}

// AddNaming attaches a naming scheme to the group. The naming must be
// consistent with the group's network type and not attached yet.
func (s *Service) AddNaming(ctx context.Context, groupID string, naming chain.Naming) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()
	return s.addNaming(ctx, groupID, naming)
}

func (s *Service) addNaming(ctx context.Context, groupID string, naming chain.Naming) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if slices.Contains(group.Namings, naming) {
		return apperr.Validationf("naming %s already in group %s", naming, group.Name)
	}
	if !naming.IsConsistent(group.NetworkType) {
		return apperr.Validationf("naming %s is not from the network type %s", naming, group.NetworkType)
	}

	if err := s.store.SetNamings(ctx, groupID, append(group.Namings, naming)); err != nil {
		return err
	}
	if err := s.store.InsertGroupName(ctx, &models.GroupName{
		ID:      models.NewID(),
		GroupID: groupID,
		Naming:  naming,
	}); err != nil {
		return err
	}

	if len(group.Accounts) > 0 {
		rows := make([]models.AccountName, 0, len(group.Accounts))
		for _, account := range group.Accounts {
			rows = append(rows, models.AccountName{
				ID:      models.NewID(),
				GroupID: groupID,
				Network: naming.Network(),
				Naming:  naming,
				Account: account,
			})
		}
		if err := s.store.InsertAccountNames(ctx, rows); err != nil {
			return err
		}
	}
	s.logger.Debug("naming added", zap.String("group_id", groupID), zap.String("naming", string(naming)))
	return nil
}

// RemoveNaming detaches a naming scheme. Removing an unattached naming is
// deliberately lenient: the deletes and the set removal are unconditional,
// so the operation is an idempotent no-op in that case.
func (s *Service) RemoveNaming(ctx context.Context, groupID string, naming chain.Naming) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()
	return s.removeNaming(ctx, groupID, naming)
}

func (s *Service) removeNaming(ctx context.Context, groupID string, naming chain.Naming) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteAccountNamesByNaming(ctx, groupID, naming); err != nil {
		return err
	}
	if err := s.store.DeleteGroupName(ctx, groupID, naming); err != nil {
		return err
	}
	remaining := slices.DeleteFunc(slices.Clone(group.Namings), func(n chain.Naming) bool { return n == naming })
	if err := s.store.SetNamings(ctx, groupID, remaining); err != nil {
		return err
	}
	s.logger.Debug("naming removed", zap.String("group_id", groupID), zap.String("naming", string(naming)))
	return nil
}

// UpdateCoins brings the attached coin set to exactly coinIDs by adding and
// removing the deltas. When at least one delta occurred, a full balance
// reconciliation pass runs as a backstop for overlapping account-list
// changes.
func (s *Service) UpdateCoins(ctx context.Context, groupID string, coinIDs []string) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, coinID := range coinIDs {
		coin, err := s.coins.Get(ctx, coinID)
		if apperr.IsNotFound(err) {
			return apperr.Validationf("unknown coin: %s", coinID)
		}
		if err != nil {
			return err
		}
		if coin.Network.Type() != group.NetworkType {
			return apperr.Validationf("coin %s is not from the network type %s", coinID, group.NetworkType)
		}
	}

	added := 0
	for _, coinID := range coinIDs {
		if !slices.Contains(group.Coins, coinID) {
			if err := s.addCoin(ctx, groupID, coinID); err != nil {
				return err
			}
			added++
		}
	}
	removed := 0
	for _, coinID := range group.Coins {
		if !slices.Contains(coinIDs, coinID) {
			if err := s.removeCoin(ctx, groupID, coinID); err != nil {
				return err
			}
			removed++
		}
	}

	if added > 0 || removed > 0 {
		if _, err := s.processAccountBalances(ctx, groupID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateNamings brings the attached naming set to exactly namings, the same
// way UpdateCoins does for coins.
func (s *Service) UpdateNamings(ctx context.Context, groupID string, namings []chain.Naming) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, naming := range namings {
		if !naming.IsConsistent(group.NetworkType) {
			return apperr.Validationf("naming %s is not from the network type %s", naming, group.NetworkType)
		}
	}

	added := 0
	for _, naming := range namings {
		if !slices.Contains(group.Namings, naming) {
			if err := s.addNaming(ctx, groupID, naming); err != nil {
				return err
			}
			added++
		}
	}
	removed := 0
	for _, naming := range group.Namings {
		if !slices.Contains(namings, naming) {
			if err := s.removeNaming(ctx, groupID, naming); err != nil {
				return err
			}
			removed++
		}
	}

	if added > 0 || removed > 0 {
		if _, err := s.processAccountNames(ctx, groupID); err != nil {
			return err
		}
	}
	return nil
}

// ProcessAccountBalances reconciles the derived balance rows of the group:
// for every attached coin it inserts a row for each account that has none,
// then removes, across all coins at once, every row whose account left the
// group. Running it twice with no configuration change in between is a
// no-op.
func (s *Service) ProcessAccountBalances(ctx context.Context, groupID string) (reconcile.Result, error) {
	unlock := s.locks.Acquire(groupID)
	defer unlock()
	return s.processAccountBalances(ctx, groupID)
}

func (s *Service) processAccountBalances(ctx context.Context, groupID string) (reconcile.Result, error) {
	var result reconcile.Result

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return result, err
	}

	known := make(map[string][]string, len(group.Coins))
	for _, coinID := range group.Coins {
		accounts, err := s.store.KnownBalanceAccounts(ctx, groupID, coinID)
		if err != nil {
			return result, err
		}
		known[coinID] = accounts
	}

	for _, ins := range reconcile.PlanInsertions(group.Accounts, group.Coins, known) {
		network, err := chain.NetworkOfCoinID(ins.Key)
		if err != nil {
			return result, err
		}
		rows := make([]models.AccountBalance, 0, len(ins.Accounts))
		for _, account := range ins.Accounts {
			rows = append(rows, models.AccountBalance{
				ID:      models.NewID(),
				GroupID: groupID,
				Network: network,
				Coin:    ins.Key,
				Account: account,
			})
		}
		if err := s.store.InsertAccountBalances(ctx, rows); err != nil {
			return result, err
		}
		result.Inserted += len(rows)
	}

	// One bulk delete over all coins, with the same account-list snapshot
	// used for the insertions above.
	deleted, err := s.store.DeleteStaleAccountBalances(ctx, groupID, group.Accounts)
	if err != nil {
		return result, err
	}
	result.Deleted = int(deleted)

	s.logger.Debug("account balances processed",
		zap.String("group_id", groupID),
		zap.Int("inserted", result.Inserted),
		zap.Int("deleted", result.Deleted))
	return result, nil
}

// ProcessAccountNames reconciles the derived name rows of the group,
// symmetrically to ProcessAccountBalances with namings in place of coins.
func (s *Service) ProcessAccountNames(ctx context.Context, groupID string) (reconcile.Result, error) {
	unlock := s.locks.Acquire(groupID)
	defer unlock()
	return s.processAccountNames(ctx, groupID)
}

func (s *Service) processAccountNames(ctx context.Context, groupID string) (reconcile.Result, error) {
	var result reconcile.Result

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return result, err
	}

	keys := make([]string, 0, len(group.Namings))
	known := make(map[string][]string, len(group.Namings))
	for _, naming := range group.Namings {
		accounts, err := s.store.KnownNameAccounts(ctx, groupID, naming)
		if err != nil {
			return result, err
		}
		keys = append(keys, string(naming))
		known[string(naming)] = accounts
	}

	for _, ins := range reconcile.PlanInsertions(group.Accounts, keys, known) {
		naming := chain.Naming(ins.Key)
		rows := make([]models.AccountName, 0, len(ins.Accounts))
		for _, account := range ins.Accounts {
			rows = append(rows, models.AccountName{
				ID:      models.NewID(),
				GroupID: groupID,
				Network: naming.Network(),
				Naming:  naming,
				Account: account,
			})
		}
		if err := s.store.InsertAccountNames(ctx, rows); err != nil {
			return result, err
		}
		result.Inserted += len(rows)
	}

	deleted, err := s.store.DeleteStaleAccountNames(ctx, groupID, group.Accounts)
	if err != nil {
		return result, err
	}
	result.Deleted = int(deleted)

	s.logger.Debug("account names processed",
		zap.String("group_id", groupID),
		zap.Int("inserted", result.Inserted),
		zap.Int("deleted", result.Deleted))
	return result, nil
}

// ResetGroupBalances clears every collected balance of the group: the
// aggregate maps become empty and the externally-owned fields of the derived
// rows are nulled. Row existence is untouched.
func (s *Service) ResetGroupBalances(ctx context.Context, groupID string) error {
	unlock := s.locks.Acquire(groupID)
	defer unlock()

	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.store.ResetGroupBalances(ctx, groupID); err != nil {
		return err
	}
	if err := s.store.ClearAccountBalanceValues(ctx, groupID); err != nil {
		return err
	}
	s.logger.Info("group balances reset", zap.String("group_id", groupID))
	return nil
}
