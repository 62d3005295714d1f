package coins

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service provides lookup and maintenance of the coin registry.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new coins service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Get returns the coin with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Coin, error) {
	var coin Coin
	err := s.db.WithContext(ctx).First(&coin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("coin", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coin %s: %w", id, err)
	}
	return &coin, nil
}

// List returns all coins ordered by id.
func (s *Service) List(ctx context.Context) ([]Coin, error) {
	var result []Coin
	if err := s.db.WithContext(ctx).Order("id").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list coins: %w", err)
	}
	return result, nil
}

// Map returns all coins keyed by id.
func (s *Service) Map(ctx context.Context) (map[string]Coin, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Coin, len(all))
	for _, c := range all {
		result[c.ID] = c
	}
	return result, nil
}

// ByNetworks returns all coins belonging to any of the given networks,
// ordered by id.
func (s *Service) ByNetworks(ctx context.Context, networks []chain.Network) ([]Coin, error) {
	var result []Coin
	if err := s.db.WithContext(ctx).Where("network IN ?", networks).Order("id").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list coins by networks: %w", err)
	}
	return result, nil
}

// Unknown returns the subset of ids that are not present in the registry,
// preserving input order.
func (s *Service) Unknown(ctx context.Context, ids []string) ([]string, error) {
	known, err := s.Map(ctx)
	if err != nil {
		return nil, err
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}

// Add registers a new coin. The id must match the coin's network prefix.
func (s *Service) Add(ctx context.Context, coin Coin) error {
	if !coin.Network.IsValid() {
		return apperr.Validationf("unknown network: %s", coin.Network)
	}
	if coin.ID != chain.CoinID(coin.Network, coin.Symbol) {
		return apperr.Validationf("coin id %s does not match network %s and symbol %s", coin.ID, coin.Network, coin.Symbol)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&Coin{}).Where("id = ?", coin.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check coin %s: %w", coin.ID, err)
	}
	if count > 0 {
		return apperr.Validationf("coin %s already exists", coin.ID)
	}
	if err := s.db.WithContext(ctx).Create(&coin).Error; err != nil {
		return fmt.Errorf("failed to create coin %s: %w", coin.ID, err)
	}
	s.logger.Debug("coin added", zap.String("coin_id", coin.ID))
	return nil
}
