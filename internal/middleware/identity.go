package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/identity"
)

const (
	userIDHeader  = "X-User-ID"
	userPINHeader = "X-User-PIN"
)

// Identity authenticates the X-User-ID / X-User-PIN headers. With optional
// set, requests without the headers pass through anonymously; bad
// credentials are always rejected.
func Identity(svc *identity.Service, optional bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(userIDHeader)
		pin := c.Get(userPINHeader)
		if userID == "" && pin == "" && optional {
			return c.Next()
		}
		if userID == "" || pin == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing credentials")
		}

		user, err := svc.Authenticate(c.UserContext(), userID, pin)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredentials) {
				return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		identity.WithPrincipal(c, user.Principal())
		return c.Next()
	}
}

// Authenticated rejects anonymous callers.
func Authenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := identity.PrincipalFrom(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		}
		return c.Next()
	}
}

// RequireGM rejects callers without GM authority.
func RequireGM() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := identity.PrincipalFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		}
		if !p.IsGM() {
			return fiber.NewError(http.StatusForbidden, "GM only")
		}
		return c.Next()
	}
}

// RequireHolderAccess rejects callers that may not act for the holder
// named by the route parameter.
func RequireHolderAccess(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := identity.PrincipalFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		}
		if !p.CanActFor(c.Params(param)) {
			return fiber.NewError(http.StatusForbidden, "not allowed to act for this holder")
		}
		return c.Next()
	}
}
