package groups

import (
	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"
	"github.com/mcbarinov/accounts-monitor/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for groups.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the groups routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/groups")
	group.Get("/", h.HandleList)
	group.Post("/", h.HandleCreate)
	group.Get("/export", h.HandleExport)
	group.Post("/import", h.HandleImport)
	group.Post("/backup", h.HandleBackup)
	group.Post("/import-storage", h.HandleImportStorage)
	group.Get("/:id", h.HandleGet)
	group.Delete("/:id", h.HandleDelete)
	group.Put("/:id/accounts", h.HandleUpdateAccounts)
	group.Post("/:id/coins", h.HandleAddCoin)
	group.Put("/:id/coins", h.HandleUpdateCoins)
	group.Delete("/:id/coins/:coin", h.HandleRemoveCoin)
	group.Post("/:id/coins/bulk-remove", h.HandleRemoveCoinsBulk)
	group.Post("/:id/namings", h.HandleAddNaming)
	group.Put("/:id/namings", h.HandleUpdateNamings)
	group.Delete("/:id/namings/:naming", h.HandleRemoveNaming)
	group.Post("/:id/process-balances", h.HandleProcessBalances)
	group.Post("/:id/process-names", h.HandleProcessNames)
	group.Post("/:id/reset-balances", h.HandleResetBalances)
	group.Get("/:id/accounts-info", h.HandleAccountsInfo)
	group.Get("/:id/cleanup-info", h.HandleCleanupInfo)
}

// respondError maps application errors onto HTTP statuses: validation
// failures are 400, missing entities 404, everything else 500.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	if apperr.IsValidation(err) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if apperr.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	logger.WithRayID(h.logger, c).Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// CreateGroupRequest is the body of the group creation endpoint.
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	NetworkType string   `json:"network_type"`
	Notes       string   `json:"notes"`
	Namings     []string `json:"namings"`
	Coins       []string `json:"coins"`
}

// HandleList returns all groups.
// @Summary List Groups
// @Tags groups
// @Produce json
// @Success 200 {array} models.Group "Groups"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /groups [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	result, err := h.service.ListGroups(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

// HandleGet returns one group.
// @Summary Get Group
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} models.Group "Group"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /groups/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	result, err := h.service.GetGroup(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

// HandleCreate creates a group with its initial namings and coins.
// @Summary Create Group
// @Tags groups
// @Accept json
// @Produce json
// @Param group body CreateGroupRequest true "Group"
// @Success 201 {object} models.Group "Created"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /groups [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	namings := make([]chain.Naming, 0, len(req.Namings))
	for _, raw := range req.Namings {
		naming, err := chain.ParseNaming(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		namings = append(namings, naming)
	}

	group, err := h.service.CreateGroup(c.Context(), req.Name, chain.NetworkType(req.NetworkType), req.Notes, namings, req.Coins)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// HandleDelete deletes a group and all of its derived rows.
// @Summary Delete Group
// @Tags groups
// @Param id path string true "Group ID"
// @Success 204 "Deleted"
// @Router /groups/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.DeleteGroup(c.Context(), c.Params("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUpdateAccounts replaces the group's account list.
// @Summary Update Accounts
// @Tags groups
// @Accept json
// @Param id path string true "Group ID"
// @Param accounts body []string true "Accounts"
// @Success 204 "Updated"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /groups/{id}/accounts [put]
func (h *Handler) HandleUpdateAccounts(c *fiber.Ctx) error {
	var accounts []string
	if err := c.BodyParser(&accounts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.UpdateAccounts(c.Context(), c.Params("id"), accounts); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAddCoin attaches a coin to the group.
// @Summary Add Coin to Group
// @Tags groups
// @Accept json
// @Param id path string true "Group ID"
// @Param body body object{coin=string} true "Coin ID"
// @Success 204 "Added"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /groups/{id}/coins [post]
func (h *Handler) HandleAddCoin(c *fiber.Ctx) error {
	var req struct {
		Coin string `json:"coin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.AddCoin(c.Context(), c.Params("id"), req.Coin); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUpdateCoins replaces the group's attached coin set.
// @Summary Update Group Coins
// @Tags groups
// @Accept json
// @Param id path string true "Group ID"
// @Param coins body []string true "Coin IDs"
// @Success 204 "Updated"
// @Router /groups/{id}/coins [put]
func (h *Handler) HandleUpdateCoins(c *fiber.Ctx) error {
	var coinIDs []string
	if err := c.BodyParser(&coinIDs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.UpdateCoins(c.Context(), c.Params("id"), coinIDs); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRemoveCoin detaches a coin from the group.
// @Summary Remove Coin from Group
// @Tags groups
// @Param id path string true "Group ID"
// @Param coin path string true "Coin ID"
// @Success 204 "Removed"
// @Router /groups/{id}/coins/{coin} [delete]
func (h *Handler) HandleRemoveCoin(c *fiber.Ctx) error {
	if err := h.service.RemoveCoin(c.Context(), c.Params("id"), c.Params("coin")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRemoveCoinsBulk removes several coins, continuing past failures.
// @Summary Bulk Remove Coins
// @Tags groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param coins body []string true "Coin IDs"
// @Success 200 {object} map[string]int "Removed count"
// @Router /groups/{id}/coins/bulk-remove [post]
func (h *Handler) HandleRemoveCoinsBulk(c *fiber.Ctx) error {
	var coinIDs []string
	if err := c.BodyParser(&coinIDs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	result, err := h.service.RemoveCoinsBulk(c.Context(), c.Params("id"), coinIDs)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"removed": result.Removed(), "total": len(result.Items)})
}

// HandleAddNaming attaches a naming scheme to the group.
// @Summary Add Naming to Group
// @Tags groups
// @Accept json
// @Param id path string true "Group ID"
// @Param body body object{naming=string} true "Naming"
// @Success 204 "Added"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /groups/{id}/namings [post]
func (h *Handler) HandleAddNaming(c *fiber.Ctx) error {
	var req struct {
		Naming string `json:"naming"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	naming, err := chain.ParseNaming(req.Naming)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.AddNaming(c.Context(), c.Params("id"), naming); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUpdateNamings replaces the group's attached naming set.
// @Summary Update Group Namings
// @Tags groups
// @Accept json
// @Param id path string true "Group ID"
// @Param namings body []string true "Namings"
// @Success 204 "Updated"
// @Router /groups/{id}/namings [put]
func (h *Handler) HandleUpdateNamings(c *fiber.Ctx) error {
	var raw []string
	if err := c.BodyParser(&raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	namings := make([]chain.Naming, 0, len(raw))
	for _, r := range raw {
		naming, err := chain.ParseNaming(r)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		namings = append(namings, naming)
	}
	if err := h.service.UpdateNamings(c.Context(), c.Params("id"), namings); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRemoveNaming detaches a naming scheme from the group.
// @Summary Remove Naming from Group
// @Tags groups
// @Param id path string true "Group ID"
// @Param naming path string true "Naming"
// @Success 204 "Removed"
// @Router /groups/{id}/namings/{naming} [delete]
func (h *Handler) HandleRemoveNaming(c *fiber.Ctx) error {
	naming, err := chain.ParseNaming(c.Params("naming"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.RemoveNaming(c.Context(), c.Params("id"), naming); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleProcessBalances reconciles the derived balance rows of the group.
// @Summary Process Account Balances
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} reconcile.Result "Result"
// @Router /groups/{id}/process-balances [post]
func (h *Handler) HandleProcessBalances(c *fiber.Ctx) error {
	result, err := h.service.ProcessAccountBalances(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

// HandleProcessNames reconciles the derived name rows of the group.
// @Summary Process Account Names
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} reconcile.Result "Result"
// @Router /groups/{id}/process-names [post]
func (h *Handler) HandleProcessNames(c *fiber.Ctx) error {
	result, err := h.service.ProcessAccountNames(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

// HandleResetBalances clears all collected balances of the group.
// @Summary Reset Group Balances
// @Tags groups
// @Param id path string true "Group ID"
// @Success 204 "Reset"
// @Router /groups/{id}/reset-balances [post]
func (h *Handler) HandleResetBalances(c *fiber.Ctx) error {
	if err := h.service.ResetGroupBalances(c.Context(), c.Params("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAccountsInfo returns the balances and names projection of the group.
// @Summary Group Accounts Info
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} GroupAccountsInfo "Info"
// @Router /groups/{id}/accounts-info [get]
func (h *Handler) HandleAccountsInfo(c *fiber.Ctx) error {
	info, err := h.service.GetGroupAccountsInfo(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(info)
}

// HandleCleanupInfo returns the per-coin cleanup summary of the group.
// @Summary Coin Cleanup Info
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {array} CoinCleanupInfo "Info"
// @Router /groups/{id}/cleanup-info [get]
func (h *Handler) HandleCleanupInfo(c *fiber.Ctx) error {
	infos, err := h.service.GetCoinCleanupInfo(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(infos)
}

// HandleExport returns every group as a TOML document.
// @Summary Export Groups
// @Tags groups
// @Produce plain
// @Success 200 {string} string "TOML document"
// @Router /groups/export [get]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	data, err := h.service.ExportTOML(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/toml")
	return c.SendString(data)
}

// HandleImport creates groups from a TOML document in the request body.
// @Summary Import Groups
// @Tags groups
// @Accept plain
// @Produce json
// @Success 200 {object} map[string]int "Imported count"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /groups/import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	count, err := h.service.ImportTOML(c.Context(), string(c.Body()))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"imported": count})
}

// HandleBackup uploads a TOML export of every group to object storage.
// @Summary Backup Groups
// @Tags groups
// @Produce json
// @Success 200 {object} map[string]string "Backup object key"
// @Router /groups/backup [post]
func (h *Handler) HandleBackup(c *fiber.Ctx) error {
	key, err := h.service.BackupToStorage(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"object": key})
}

// HandleImportStorage imports every pending zip archive from object storage.
// @Summary Import Groups from Storage
// @Tags groups
// @Produce json
// @Success 200 {object} map[string]int "Imported count"
// @Router /groups/import-storage [post]
func (h *Handler) HandleImportStorage(c *fiber.Ctx) error {
	count, err := h.service.ImportFromStorage(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"imported": count})
}
