package sync

import (
	"errors"

	"marketplace-sync/core/logger"
	"marketplace-sync/core/middleware/actor"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for product synchronization.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/products", h.HandleSyncProducts)
	group.Post("/products/:id", h.HandleSyncProduct)
	group.Post("/status", h.HandleStatus)
	group.Post("/pricing", h.HandlePricing)
}

type productBody struct {
	AccountID    int64 `json:"account_id"`
	Force        bool  `json:"force"`
	ForceGraphQL bool  `json:"force_graphql"`
	ForceREST    bool  `json:"force_rest"`
}

// HandleSyncProducts synchronizes a batch of products.
// @Summary Sync Products
// @Description Synchronize products to a sync account on a bounded worker pool.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body sync.SyncRequest true "Sync request"
// @Success 200 {object} sync.BulkSummary "Bulk summary"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /sync/products [post]
func (h *Handler) HandleSyncProducts(c *fiber.Ctx) error {
	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Actor = actor.From(c)

	summary, err := h.service.SyncProducts(c.Context(), req)
	if err != nil {
		return h.fail(c, "Bulk sync failed", err)
	}
	return c.JSON(summary)
}

// HandleSyncProduct synchronizes one product.
// @Summary Sync Product
// @Description Synchronize one product. Failures are reported in the body with status 200.
// @Tags sync
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} sync.Result "Sync result"
// @Router /sync/products/{id} [post]
func (h *Handler) HandleSyncProduct(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("id")
	if err != nil || productID <= 0 {
		return badRequest(c, "invalid product id")
	}
	var body productBody
	if err := c.BodyParser(&body); err != nil || body.AccountID <= 0 {
		return badRequest(c, "account_id is required")
	}

	result := h.service.SyncProduct(c.Context(), int64(productID), body.AccountID, Options{
		Force:        body.Force,
		ForceGraphQL: body.ForceGraphQL,
		ForceREST:    body.ForceREST,
		Actor:        actor.From(c),
	})
	return c.JSON(result)
}

// HandleStatus reports the sync health of products.
// @Summary Check Sync Status
// @Description Resolve status, drift and health per product. refresh fetches the listings first.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body sync.StatusRequest true "Status request"
// @Success 200 {object} sync.StatusSummary "Status summary"
// @Router /sync/status [post]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	summary, err := h.service.CheckStatus(c.Context(), req)
	if err != nil {
		return h.fail(c, "Status check failed", err)
	}
	return c.JSON(summary)
}

// HandlePricing pushes computed prices to linked listings.
// @Summary Update Pricing
// @Description Price variants of linked colors from the base, channel or sale price.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body sync.PricingRequest true "Pricing request"
// @Success 200 {object} sync.PricingSummary "Pricing summary"
// @Router /sync/pricing [post]
func (h *Handler) HandlePricing(c *fiber.Ctx) error {
	var req PricingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Actor = actor.From(c)

	summary, err := h.service.UpdatePricing(c.Context(), req)
	if err != nil {
		return h.fail(c, "Pricing update failed", err)
	}
	return c.JSON(summary)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	if errors.Is(err, ErrInvalidRequest) {
		return badRequest(c, err.Error())
	}
	logger.WithRayID(h.service.logger, c).Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
