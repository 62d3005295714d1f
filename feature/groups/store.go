package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/feature/groups/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store is the document-store adapter for the five group collections. Writes
// are atomic per row; multi-row operations are filter-based bulk writes with
// no cross-collection atomicity, so callers serialize through the per-group
// mutation lock.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the feature's tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(models.All()...)
}

// GetGroup returns the group with the given id.
func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("group", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", id, err)
	}
	return &group, nil
}

// ListGroups returns all groups ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	var result []models.Group
	if err := s.db.WithContext(ctx).Order("name").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return result, nil
}

// GroupExistsByName reports whether a group with the given name exists.
func (s *Store) GroupExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check group name %s: %w", name, err)
	}
	return count > 0, nil
}

// InsertGroup creates the group document.
func (s *Store) InsertGroup(ctx context.Context, group *models.Group) error {
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("failed to insert group %s: %w", group.Name, err)
	}
	return nil
}

// DeleteGroupDoc removes the group document itself. Deleting an absent group
// is a no-op, which makes group deletion idempotent.
func (s *Store) DeleteGroupDoc(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Group{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete group %s: %w", id, err)
	}
	return nil
}

// SetAccounts replaces the group's account list.
func (s *Store) SetAccounts(ctx context.Context, id string, accounts []string) error {
	return s.setGroupField(ctx, id, "accounts", &models.Group{Accounts: accounts})
}

// SetCoins replaces the group's attached coin list.
func (s *Store) SetCoins(ctx context.Context, id string, coins []string) error {
	return s.setGroupField(ctx, id, "coins", &models.Group{Coins: coins})
}

// SetNamings replaces the group's attached naming list.
func (s *Store) SetNamings(ctx context.Context, id string, namings []chain.Naming) error {
	return s.setGroupField(ctx, id, "namings", &models.Group{Namings: namings})
}

// setGroupField writes one list column via a struct-based update. Column
// updates must go through the schema (Select + Updates with a model value):
// gorm only applies the JSON serializer on struct updates, a plain
// Update(column, value) would write the Go value raw.
func (s *Store) setGroupField(ctx context.Context, id, column string, value *models.Group) error {
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).Select(column).Updates(value).Error; err != nil {
		return fmt.Errorf("failed to set %s on group %s: %w", column, id, err)
	}
	return nil
}

// InsertGroupBalance creates the per-coin aggregate row.
func (s *Store) InsertGroupBalance(ctx context.Context, row *models.GroupBalance) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert group balance for coin %s: %w", row.Coin, err)
	}
	return nil
}

// ListGroupBalances returns the aggregate rows of the group.
func (s *Store) ListGroupBalances(ctx context.Context, groupID string) ([]models.GroupBalance, error) {
	var result []models.GroupBalance
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("coin").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list group balances for group %s: %w", groupID, err)
	}
	return result, nil
}

// DeleteGroupBalance removes the aggregate row of one coin.
func (s *Store) DeleteGroupBalance(ctx context.Context, groupID, coinID string) error {
	if err := s.db.WithContext(ctx).Where("group_id = ? AND coin = ?", groupID, coinID).Delete(&models.GroupBalance{}).Error; err != nil {
		return fmt.Errorf("failed to delete group balance for coin %s: %w", coinID, err)
	}
	return nil
}

// DeleteGroupBalances removes every aggregate balance row of the group,
// returning the count.
func (s *Store) DeleteGroupBalances(ctx context.Context, groupID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.GroupBalance{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete group balances for group %s: %w", groupID, res.Error)
	}
	return res.RowsAffected, nil
}

// ResetGroupBalances empties every balances map of the group. The update is
// struct-based for the same serializer reason as setGroupField.
func (s *Store) ResetGroupBalances(ctx context.Context, groupID string) error {
	err := s.db.WithContext(ctx).Model(&models.GroupBalance{}).
		Where("group_id = ?", groupID).
		Select("balances").
		Updates(&models.GroupBalance{Balances: map[string]*decimal.Decimal{}}).Error
	if err != nil {
		return fmt.Errorf("failed to reset group balances for group %s: %w", groupID, err)
	}
	return nil
}

// InsertGroupName creates the naming attachment marker.
func (s *Store) InsertGroupName(ctx context.Context, row *models.GroupName) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert group name for naming %s: %w", row.Naming, err)
	}
	return nil
}

// ListGroupNames returns the naming markers of the group.
func (s *Store) ListGroupNames(ctx context.Context, groupID string) ([]models.GroupName, error) {
	var result []models.GroupName
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("naming").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list group names for group %s: %w", groupID, err)
	}
	return result, nil
}

// DeleteGroupName removes the marker of one naming.
func (s *Store) DeleteGroupName(ctx context.Context, groupID string, naming chain.Naming) error {
	if err := s.db.WithContext(ctx).Where("group_id = ? AND naming = ?", groupID, naming).Delete(&models.GroupName{}).Error; err != nil {
		return fmt.Errorf("failed to delete group name for naming %s: %w", naming, err)
	}
	return nil
}

// DeleteGroupNames removes every naming marker of the group, returning the
// count.
func (s *Store) DeleteGroupNames(ctx context.Context, groupID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.GroupName{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete group names for group %s: %w", groupID, res.Error)
	}
	return res.RowsAffected, nil
}

// InsertAccountBalances bulk-creates derived balance rows.
func (s *Store) InsertAccountBalances(ctx context.Context, rows []models.AccountBalance) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert account balances: %w", err)
	}
	return nil
}

// KnownBalanceAccounts returns only the account field of every derived
// balance row for (group, coin). The projection avoids loading full rows for
// large account lists.
func (s *Store) KnownBalanceAccounts(ctx context.Context, groupID, coinID string) ([]string, error) {
	var accounts []string
	err := s.db.WithContext(ctx).Model(&models.AccountBalance{}).
		Where("group_id = ? AND coin = ?", groupID, coinID).
		Pluck("account", &accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to project balance accounts for coin %s: %w", coinID, err)
	}
	return accounts, nil
}

// DeleteStaleAccountBalances removes every derived balance row of the group
// whose account is not in the given list, across all coins at once. An empty
// list removes all rows.
func (s *Store) DeleteStaleAccountBalances(ctx context.Context, groupID string, accounts []string) (int64, error) {
	query := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if len(accounts) > 0 {
		query = query.Where("account NOT IN ?", accounts)
	}
	res := query.Delete(&models.AccountBalance{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete stale account balances for group %s: %w", groupID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAccountBalancesByCoin removes the derived balance rows of one coin.
func (s *Store) DeleteAccountBalancesByCoin(ctx context.Context, groupID, coinID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("group_id = ? AND coin = ?", groupID, coinID).Delete(&models.AccountBalance{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete account balances for coin %s: %w", coinID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAccountBalances removes every derived balance row of the group.
func (s *Store) DeleteAccountBalances(ctx context.Context, groupID string) (int64, error) {
	return s.DeleteStaleAccountBalances(ctx, groupID, nil)
}

// ClearAccountBalanceValues nulls the externally-owned fields of every
// derived balance row of the group.
func (s *Store) ClearAccountBalanceValues(ctx context.Context, groupID string) error {
	err := s.db.WithContext(ctx).Model(&models.AccountBalance{}).
		Where("group_id = ?", groupID).
		Updates(map[string]any{"balance": nil, "balance_raw": nil, "checked_at": nil}).Error
	if err != nil {
		return fmt.Errorf("failed to clear account balance values for group %s: %w", groupID, err)
	}
	return nil
}

// ListAccountBalances returns the derived balance rows of the group.
func (s *Store) ListAccountBalances(ctx context.Context, groupID string) ([]models.AccountBalance, error) {
	var result []models.AccountBalance
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list account balances for group %s: %w", groupID, err)
	}
	return result, nil
}

// CountAccountBalances counts derived balance rows matching (group, coin).
func (s *Store) CountAccountBalances(ctx context.Context, groupID, coinID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AccountBalance{}).
		Where("group_id = ? AND coin = ?", groupID, coinID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count account balances for coin %s: %w", coinID, err)
	}
	return count, nil
}

// InsertAccountNames bulk-creates derived name rows.
func (s *Store) InsertAccountNames(ctx context.Context, rows []models.AccountName) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert account names: %w", err)
	}
	return nil
}

// KnownNameAccounts returns only the account field of every derived name row
// for (group, naming).
func (s *Store) KnownNameAccounts(ctx context.Context, groupID string, naming chain.Naming) ([]string, error) {
	var accounts []string
	err := s.db.WithContext(ctx).Model(&models.AccountName{}).
		Where("group_id = ? AND naming = ?", groupID, naming).
		Pluck("account", &accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to project name accounts for naming %s: %w", naming, err)
	}
	return accounts, nil
}

// DeleteStaleAccountNames removes every derived name row of the group whose
// account is not in the given list, across all namings at once. An empty
// list removes all rows.
func (s *Store) DeleteStaleAccountNames(ctx context.Context, groupID string, accounts []string) (int64, error) {
	query := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if len(accounts) > 0 {
		query = query.Where("account NOT IN ?", accounts)
	}
	res := query.Delete(&models.AccountName{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete stale account names for group %s: %w", groupID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAccountNamesByNaming removes the derived name rows of one naming.
func (s *Store) DeleteAccountNamesByNaming(ctx context.Context, groupID string, naming chain.Naming) (int64, error) {
	res := s.db.WithContext(ctx).Where("group_id = ? AND naming = ?", groupID, naming).Delete(&models.AccountName{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete account names for naming %s: %w", naming, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAccountNames removes every derived name row of the group.
func (s *Store) DeleteAccountNames(ctx context.Context, groupID string) (int64, error) {
	return s.DeleteStaleAccountNames(ctx, groupID, nil)
}

// ListAccountNames returns the derived name rows of the group.
func (s *Store) ListAccountNames(ctx context.Context, groupID string) ([]models.AccountName, error) {
	var result []models.AccountName
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list account names for group %s: %w", groupID, err)
	}
	return result, nil
}
