package coins

import (
	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for coins.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the coins routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/coins")
	group.Get("/", h.HandleList)
	group.Post("/", h.HandleAdd)
}

// HandleList returns all registered coins.
// @Summary List Coins
// @Description List all coins in the registry.
// @Tags coins
// @Produce json
// @Success 200 {array} Coin "Coins"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /coins [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	result, err := h.service.List(c.Context())
	if err != nil {
		l.Error("Coin listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// HandleAdd registers a new coin.
// @Summary Add Coin
// @Description Register a new coin in the registry.
// @Tags coins
// @Accept json
// @Produce json
// @Param coin body Coin true "Coin"
// @Success 201 {object} Coin "Created"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /coins [post]
func (h *Handler) HandleAdd(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var coin Coin
	if err := c.BodyParser(&coin); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.service.Add(c.Context(), coin); err != nil {
		if apperr.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Coin creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(coin)
}
