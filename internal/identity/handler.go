package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// WithPrincipal stores the authenticated caller on the request.
func WithPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalKey, p)
	c.Locals("user_id", p.UserID)
	c.Locals("is_gm", p.IsGM())
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalKey).(Principal)
	return p, ok
}

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
	Role Role   `json:"role"`
}

type characterRequest struct {
	CharacterID string `json:"character_id"`
}

type userResponse struct {
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	Role         Role     `json:"role"`
	CharacterIDs []string `json:"character_ids"`
}

func toResponse(u User) userResponse {
	return userResponse{UserID: u.ID, Name: u.Name, Role: u.Role, CharacterIDs: u.CharacterIDs}
}

// Register handles participant onboarding. Only the GM may register
// another GM.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if caller, ok := PrincipalFrom(c); !ok || !caller.IsGM() {
		req.Role = RolePlayer
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Name: req.Name, PIN: req.PIN, Role: req.Role})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(user))
}

// Me returns the caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	p, ok := PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.service.Get(c.UserContext(), p.UserID)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(user))
}

// AssignCharacter links a character to a participant.
func (h *Handler) AssignCharacter(c *fiber.Ctx) error {
	var req characterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.AssignCharacter(c.UserContext(), c.Params("userId"), req.CharacterID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(user))
}
