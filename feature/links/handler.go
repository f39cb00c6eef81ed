package links

import (
	"errors"
	"strings"

	"marketplace-sync/core/logger"
	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/middleware/actor"
	"marketplace-sync/feature/catalog"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for marketplace links.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the link routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/links")
	group.Post("", h.HandleLink)
	group.Post("/reconcile", h.HandleReconcile)
	group.Get("/:product/status", h.HandleStatus)
	group.Post("/:product/synchronize", h.HandleSynchronize)
	group.Post("/:product/refresh", h.HandleRefresh)
	group.Delete("/:product", h.HandleUnlink)
}

type accountBody struct {
	AccountID int64 `json:"account_id"`
}

// HandleStatus returns the canonical sync status of a pair.
// @Summary Get Link Status
// @Description Resolve the sync status of a product on an account, preferring the latest marketplace link.
// @Tags links
// @Produce json
// @Param product path int true "Product ID"
// @Param account query int true "Sync account ID"
// @Success 200 {object} links.CanonicalStatus "Canonical status"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /links/{product}/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("product")
	if err != nil || productID <= 0 {
		return badRequest(c, "invalid product id")
	}
	accountID := int64(c.QueryInt("account"))
	if accountID <= 0 {
		return badRequest(c, "account query parameter is required")
	}

	status, err := h.service.Status(c.Context(), int64(productID), accountID)
	if err != nil {
		return h.fail(c, "Link status lookup failed", err)
	}
	return c.JSON(status)
}

// HandleSynchronize reconciles the two representations of one pair.
// @Summary Synchronize Link And Status
// @Description Upsert the legacy status from the latest link, or materialize a link from the status.
// @Tags links
// @Accept json
// @Produce json
// @Param product path int true "Product ID"
// @Success 200 {object} links.SyncReport "Synchronization report"
// @Router /links/{product}/synchronize [post]
func (h *Handler) HandleSynchronize(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("product")
	if err != nil || productID <= 0 {
		return badRequest(c, "invalid product id")
	}
	var body accountBody
	if err := c.BodyParser(&body); err != nil || body.AccountID <= 0 {
		return badRequest(c, "account_id is required")
	}

	report, err := h.service.Synchronize(c.Context(), int64(productID), body.AccountID, actor.From(c))
	if err != nil {
		return h.fail(c, "Link synchronization failed", err)
	}
	return c.JSON(report)
}

// HandleLink attaches an existing listing to a product.
// @Summary Link Listing
// @Description Verify an external listing with a match rule (sku, parent_sku, none) and link it.
// @Tags links
// @Accept json
// @Produce json
// @Param request body links.LinkRequest true "Link request"
// @Success 201 {object} links.LinkResult "Created link"
// @Failure 422 {object} map[string]string "Listing does not match"
// @Router /links [post]
func (h *Handler) HandleLink(c *fiber.Ctx) error {
	var req LinkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Actor = actor.From(c)

	result, err := h.service.Link(c.Context(), req)
	if err != nil {
		return h.fail(c, "Linking failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleUnlink soft-retires links of a pair.
// @Summary Unlink Product
// @Description Mark links unlinked. The optional colors parameter is a comma separated list.
// @Tags links
// @Produce json
// @Param product path int true "Product ID"
// @Param account query int true "Sync account ID"
// @Param colors query string false "Colors to unlink"
// @Success 200 {object} map[string]int "Retired link count"
// @Router /links/{product} [delete]
func (h *Handler) HandleUnlink(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("product")
	if err != nil || productID <= 0 {
		return badRequest(c, "invalid product id")
	}
	accountID := int64(c.QueryInt("account"))
	if accountID <= 0 {
		return badRequest(c, "account query parameter is required")
	}
	var colors []string
	for _, color := range strings.Split(c.Query("colors"), ",") {
		if color = strings.TrimSpace(color); color != "" {
			colors = append(colors, color)
		}
	}

	retired, err := h.service.Unlink(c.Context(), int64(productID), accountID, colors, actor.From(c))
	if err != nil {
		return h.fail(c, "Unlink failed", err)
	}
	return c.JSON(fiber.Map{"unlinked": retired})
}

// HandleRefresh re-fetches the listings behind a pair's links.
// @Summary Refresh Color Links
// @Description Re-fetch each linked listing, marking missing listings failed.
// @Tags links
// @Accept json
// @Produce json
// @Param product path int true "Product ID"
// @Success 200 {object} links.RefreshReport "Refresh report"
// @Router /links/{product}/refresh [post]
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("product")
	if err != nil || productID <= 0 {
		return badRequest(c, "invalid product id")
	}
	var body accountBody
	if err := c.BodyParser(&body); err != nil || body.AccountID <= 0 {
		return badRequest(c, "account_id is required")
	}

	report, err := h.service.RefreshColorLinks(c.Context(), int64(productID), body.AccountID, actor.From(c))
	if err != nil {
		return h.fail(c, "Link refresh failed", err)
	}
	return c.JSON(report)
}

// HandleReconcile runs the bulk link reconciliation.
// @Summary Reconcile Links
// @Description Compare every link with its status row. Writes only when confirmed and not a dry run.
// @Tags links
// @Accept json
// @Produce json
// @Param request body links.ReconcileRequest true "Reconcile request"
// @Success 200 {object} links.ReconcileResponse "Plan and executed count"
// @Router /links/reconcile [post]
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Actor = actor.From(c)

	resp, err := h.service.Reconcile(c.Context(), req)
	if err != nil {
		return h.fail(c, "Link reconciliation failed", err)
	}
	return c.JSON(resp)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrMatchFailed):
		return fiber.StatusUnprocessableEntity
	}
	switch marketplace.Classify(err) {
	case marketplace.KindNotFound:
		return fiber.StatusNotFound
	case marketplace.KindRateLimited:
		return fiber.StatusTooManyRequests
	case marketplace.KindAuth, marketplace.KindTransient:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
