package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes balance HTTP endpoints.
type Handler struct {
	ledger *Ledger
}

// NewHandler builds a balance HTTP handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// Balance returns the holder balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	holderID := c.Params("holderId")
	balance, err := h.ledger.Balance(c.UserContext(), holderID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"holder_id": holderID,
		"balance":   balance,
		"formatted": h.ledger.Format(balance),
		"mode":      h.ledger.Mode(),
	})
}

// Set overwrites the holder balance.
func (h *Handler) Set(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	holderID := c.Params("holderId")
	if err := h.ledger.SetBalance(c.UserContext(), holderID, ParseCurrency(req.Amount)); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return h.Balance(c)
}

// Add applies a signed delta to the holder balance.
func (h *Handler) Add(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	holderID := c.Params("holderId")
	if _, err := h.ledger.AddBalance(c.UserContext(), holderID, ParseCurrency(req.Amount)); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return h.Balance(c)
}
