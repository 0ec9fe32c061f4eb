package auth

import (
	"net/url"
	"strings"

	"cardelfi-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserKey    = "current_user"
	SessionCookie = "cardelfi_session"
)

// Identity is the authenticated user carried through request locals.
type Identity struct {
	UserID   uint
	Username string
	Role     models.UserRole
	BranchID *uint
}

func (i Identity) IsSuperAdmin() bool {
	return i.Role == models.RoleSuperAdmin
}

// CanAccessBranch: super admins see every branch, managers only their own.
func (i Identity) CanAccessBranch(branchID uint) bool {
	if i.IsSuperAdmin() {
		return true
	}
	return i.BranchID != nil && *i.BranchID == branchID
}

// RequireLogin accepts the session cookie or a bearer token. Browsers asking
// for a page are sent to the login form; everything else gets a 401.
func RequireLogin(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ParseToken(secret, tokenFromRequest(c))
		if err != nil {
			if c.Method() == fiber.MethodGet {
				return c.Redirect("/?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Sesión no iniciada o expirada")
		}

		c.Locals(CtxUserKey, Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
			BranchID: claims.BranchID,
		})
		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "No se pudo determinar el rol")
		}

		for _, r := range allowedRoles {
			if r == user.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "No tiene permiso para esta operación")
	}
}

func CurrentUser(c *fiber.Ctx) (Identity, bool) {
	user, ok := c.Locals(CtxUserKey).(Identity)
	return user, ok
}

// CheckBranch returns a 403 error when the current user may not touch branchID.
func CheckBranch(c *fiber.Ctx, branchID uint) error {
	user, ok := CurrentUser(c)
	if !ok || !user.CanAccessBranch(branchID) {
		return fiber.NewError(fiber.StatusForbidden, "No tiene acceso a esta sucursal")
	}
	return nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(SessionCookie)
}
