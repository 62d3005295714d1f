package groups

import (
	"github.com/mcbarinov/accounts-monitor/core/locker"
	"github.com/mcbarinov/accounts-monitor/core/storage"
	"github.com/mcbarinov/accounts-monitor/feature/coins"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the groups feature.
func NewFeature(db *gorm.DB, coinsSvc *coins.Service, client storage.Client, bucket string, logger *zap.Logger) *Feature {
	store := NewStore(db)
	svc := NewService(store, coinsSvc, locker.New(), client, bucket, logger)
	h := NewHandler(svc, logger)
	return &Feature{service: svc, handler: h}
}

// Service exposes the underlying service for CLI commands.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "groups"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
