package auth

import (
	"errors"
	"strings"
	"time"

	"cardelfi-backend/internal/config"
	"cardelfi-backend/internal/models"
	"cardelfi-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const homePath = "/sucursales/"

var ErrInvalidUser = errors.New("username, name and password are required")

type RegisterSuperAdminRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewUser hashes the password and builds a user ready to be inserted.
func NewUser(username, name, password string, role models.UserRole, branchID *uint) (*models.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	name = strings.TrimSpace(name)
	if username == "" || name == "" || password == "" {
		return nil, ErrInvalidUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &models.User{
		Username:     username,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		BranchID:     branchID,
	}, nil
}

// GET /
func LoginPageHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := ParseToken(cfg.JWTSecret, tokenFromRequest(c)); err == nil {
			return c.Redirect(homePath, fiber.StatusFound)
		}
		return c.Render("login", fiber.Map{
			"Title": "Ingreso",
			"Next":  safeNext(c.Query("next")),
		}, web.Layout)
	}
}

// POST /
func LoginHandler(cfg *config.Config, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := strings.TrimSpace(strings.ToLower(c.FormValue("username")))
		password := c.FormValue("password")
		next := safeNext(c.FormValue("next"))

		fail := func() error {
			return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
				"Title":    "Ingreso",
				"Next":     next,
				"Username": username,
				"Error":    "Usuario o contraseña incorrectos",
			}, web.Layout)
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fail()
			}
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			log.Info("login rejected", zap.String("username", username))
			return fail()
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.SessionTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la sesión")
		}

		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			Expires:  time.Now().Add(cfg.SessionTTL),
			HTTPOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		if next == "" {
			next = homePath
		}
		return c.Redirect(next, fiber.StatusFound)
	}
}

// GET /logout
func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Redirect("/", fiber.StatusFound)
	}
}

// POST /auth/register-super-admin, only while no super admin exists.
func RegisterSuperAdminHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		var count int64
		if err := db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Ya existe un administrador")
		}

		user, err := NewUser(body.Username, body.Name, body.Password, models.RoleSuperAdmin, nil)
		if err != nil {
			if errors.Is(err, ErrInvalidUser) {
				return fiber.NewError(fiber.StatusBadRequest, "Nombre, usuario y contraseña son obligatorios")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
		}
		if err := db.Create(user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	}
}

// safeNext only allows local absolute paths as redirect targets. Browsers
// read "/\host" like "//host".
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
