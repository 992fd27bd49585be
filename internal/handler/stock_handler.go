package handler

import (
	"errors"
	"strconv"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type StockHandler struct {
	stockService   service.StockService
	costingService service.CostingService
}

func NewStockHandler(stockService service.StockService, costingService service.CostingService) *StockHandler {
	return &StockHandler{
		stockService:   stockService,
		costingService: costingService,
	}
}

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system" // Fallback jika tidak ada (shouldn't happen in protected routes)
	}
	return userID.(string)
}

// Helper untuk parse UUID dari string
func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// movementStatus maps the mutation error taxonomy onto HTTP codes:
// caller bugs are 400, insufficient stock 409, lock contention 409 with a
// retry hint, everything else 500.
func movementStatus(err error) (int, fiber.Map) {
	var invalidErr *model.InvalidMovementError
	switch {
	case errors.As(err, &invalidErr):
		return 400, fiber.Map{"error": invalidErr.Error()}
	case errors.Is(err, model.ErrInsufficientStock):
		return 409, fiber.Map{"error": err.Error()}
	case errors.Is(err, model.ErrConcurrentModification):
		return 409, fiber.Map{"error": err.Error(), "retryable": true}
	default:
		return 500, fiber.Map{"error": err.Error()}
	}
}

// ApplyMovement records one stock movement
// POST /api/v1/stock/movements
func (h *StockHandler) ApplyMovement(c *fiber.Ctx) error {
	var input service.MovementInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	input.ActorID = getUserID(c)

	record, err := h.stockService.ApplyMovement(c.Context(), &input)
	if err != nil {
		status, body := movementStatus(err)
		return c.Status(status).JSON(body)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Movement recorded", "data": record})
}

// TransferRequest represents the transfer request body
type TransferRequest struct {
	ProductID   uuid.UUID `json:"product_id"`
	FromStoreID uuid.UUID `json:"from_store_id"`
	ToStoreID   uuid.UUID `json:"to_store_id"`
	Quantity    int       `json:"quantity"`
	TransferID  uuid.UUID `json:"transfer_id"`
	Notes       string    `json:"notes"`
}

// Transfer moves stock between stores
// POST /api/v1/stock/transfers
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.TransferID == uuid.Nil {
		req.TransferID = uuid.New()
	}

	err := h.stockService.Transfer(c.Context(), req.ProductID, req.FromStoreID, req.ToStoreID,
		req.Quantity, getUserID(c), req.TransferID, req.Notes)
	if err != nil {
		status, body := movementStatus(err)
		return c.Status(status).JSON(body)
	}

	return c.JSON(fiber.Map{"message": "Transfer completed", "transfer_id": req.TransferID})
}

// GetStockLevels lists stock, narrowed via ?store_id= and/or ?product_id=
// GET /api/v1/stock
func (h *StockHandler) GetStockLevels(c *fiber.Ctx) error {
	var storeID, productID *uuid.UUID
	if raw := c.Query("store_id"); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid store ID"})
		}
		storeID = &id
	}
	if raw := c.Query("product_id"); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
		}
		productID = &id
	}

	levels, err := h.stockService.ListStock(storeID, productID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(levels)
}

// GetStockLevel returns one (product, store) stock projection
// GET /api/v1/stock/:store_id/:product_id
func (h *StockHandler) GetStockLevel(c *fiber.Ctx) error {
	storeID, err := parseUUID(c.Params("store_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid store ID"})
	}
	productID, err := parseUUID(c.Params("product_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	level, err := h.stockService.GetStock(productID, storeID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Stock record not found"})
	}
	return c.JSON(level)
}

// GetMovements returns the movement history for one (product, store)
// GET /api/v1/stock/:store_id/:product_id/movements
func (h *StockHandler) GetMovements(c *fiber.Ctx) error {
	storeID, err := parseUUID(c.Params("store_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid store ID"})
	}
	productID, err := parseUUID(c.Params("product_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	movements, err := h.stockService.GetMovements(productID, storeID, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(movements)
}

// VerifyReplay compares the ledger-derived quantity against the cached record
// GET /api/v1/stock/:store_id/:product_id/verify
func (h *StockHandler) VerifyReplay(c *fiber.Ctx) error {
	storeID, err := parseUUID(c.Params("store_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid store ID"})
	}
	productID, err := parseUUID(c.Params("product_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	ledgerQty, recordQty, err := h.stockService.VerifyReplay(productID, storeID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(fiber.Map{
		"ledger_quantity": ledgerQty,
		"record_quantity": recordQty,
		"drift":           ledgerQty != recordQty,
	})
}

// Recompute repairs average costs by replaying the ledger. Scope narrows via
// optional product_id / store_id body fields; neither means the full catalog.
// POST /api/v1/stock/recompute
func (h *StockHandler) Recompute(c *fiber.Ctx) error {
	var req struct {
		ProductID *uuid.UUID `json:"product_id"`
		StoreID   *uuid.UUID `json:"store_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
		}
	}

	var summary *service.RecomputeSummary
	var err error
	switch {
	case req.ProductID != nil:
		summary, err = h.costingService.RecomputeForProduct(c.Context(), *req.ProductID)
	case req.StoreID != nil:
		summary, err = h.costingService.RecomputeForStore(c.Context(), *req.StoreID)
	default:
		summary, err = h.costingService.RecomputeAll(c.Context(), nil)
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Recompute finished", "summary": summary})
}
