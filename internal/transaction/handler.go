package transaction

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/identity"
)

// Handler exposes purchase and sell endpoints.
type Handler struct {
	client *Client
}

// NewHandler constructs a transaction HTTP handler.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

type transactionRequest struct {
	RequestID string `json:"request_id"`
	ActorID   string `json:"actor_id"`
	Items     []Line `json:"items"`
}

// Purchase buys items from the vendor in the route for the body's actor.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var body transactionRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	req, err := buildRequest(c, body.RequestID, body.ActorID, body.Items)
	if err != nil {
		return err
	}
	req.VendorID = c.Params("vendorId")

	res, err := h.client.Purchase(c.UserContext(), req)
	return respond(c, res, err)
}

// Sell sells items from the actor in the route.
func (h *Handler) Sell(c *fiber.Ctx) error {
	var body transactionRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	req, err := buildRequest(c, body.RequestID, c.Params("actorId"), body.Items)
	if err != nil {
		return err
	}

	res, err := h.client.Sell(c.UserContext(), req)
	return respond(c, res, err)
}

func buildRequest(c *fiber.Ctx, requestID, actorID string, items []Line) (Request, error) {
	p, ok := identity.PrincipalFrom(c)
	if !ok {
		return Request{}, fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	if actorID == "" {
		return Request{}, fiber.NewError(http.StatusBadRequest, "actor_id is required")
	}
	if !p.CanActFor(actorID) {
		return Request{}, fiber.NewError(http.StatusForbidden, "not allowed to act for this actor")
	}
	return Request{ID: requestID, RequesterID: p.UserID, ActorID: actorID, Items: items}, nil
}

func respond(c *fiber.Ctx, res Result, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateRequest):
			return fiber.NewError(http.StatusConflict, "duplicate request")
		case errors.Is(err, ErrInvalidRequest):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotAuthority):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(http.StatusGatewayTimeout, err.Error())
		}
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(res)
}
