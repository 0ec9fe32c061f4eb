package catalog

import (
	"errors"
	"strings"

	"cardelfi-backend/internal/audit"
	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidInput = errors.New("invalid catalog input")

type BranchResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Manager string `json:"manager,omitempty"`
}

type BranchRequest struct {
	Name string `json:"name"`
}

type CreateManagerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type ProductResponse struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	CategoryID uint            `json:"category_id"`
	Category   string          `json:"category"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	BranchIDs  []uint          `json:"branch_ids"`
}

type CreateProductRequest struct {
	Name       string          `json:"name"`
	CategoryID uint            `json:"category_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	BranchIDs  []uint          `json:"branch_ids"`
}

type UpdateProductRequest struct {
	Name       *string          `json:"name"`
	CategoryID *uint            `json:"category_id"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	BranchIDs  *[]uint          `json:"branch_ids"`
}

func toProductResponse(p models.Product) ProductResponse {
	ids := make([]uint, 0, len(p.Branches))
	for _, b := range p.Branches {
		ids = append(ids, b.ID)
	}
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Category:   p.Category.Name,
		UnitPrice:  p.UnitPrice,
		BranchIDs:  ids,
	}
}

// writeAudit records a catalog mutation. Audit failures are logged, not
// returned: the mutation has already been committed.
func writeAudit(c *fiber.Ctx, db *gorm.DB, log *zap.Logger, opts audit.LogOptions) {
	if user, ok := auth.CurrentUser(c); ok {
		opts.UserID = user.UserID
		opts.UserName = user.Username
	}
	if err := audit.WriteLog(c.UserContext(), db, opts); err != nil {
		log.Warn("audit log failed",
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.Error(err))
	}
}

// ----------------------------------------
// BRANCHES
// ----------------------------------------

// GET /admin/branches
func ListBranchesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := db.WithContext(c.UserContext()).Preload("Manager").Order("name asc").Find(&branches).Error; err != nil {
			return err
		}

		res := make([]BranchResponse, 0, len(branches))
		for _, b := range branches {
			r := BranchResponse{ID: b.ID, Name: b.Name}
			if b.Manager != nil {
				r.Manager = b.Manager.Username
			}
			res = append(res, r)
		}
		return c.JSON(res)
	}
}

// POST /admin/branches
func CreateBranchHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.ToUpper(strings.TrimSpace(body.Name))
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal es obligatorio")
		}

		var count int64
		if err := db.Model(&models.Branch{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Ya existe una sucursal con ese nombre")
		}

		branch := models.Branch{Name: name}
		if err := db.WithContext(c.UserContext()).Create(&branch).Error; err != nil {
			return err
		}

		writeAudit(c, db, log, audit.LogOptions{
			BranchID:    &branch.ID,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionCreate,
			Description: "Sucursal creada: " + branch.Name,
			After:       BranchResponse{ID: branch.ID, Name: branch.Name},
		})

		return c.Status(fiber.StatusCreated).JSON(BranchResponse{ID: branch.ID, Name: branch.Name})
	}
}

// PUT /admin/branches/:id
func UpdateBranchHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := db.WithContext(c.UserContext()).First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
			}
			return err
		}

		var body BranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.ToUpper(strings.TrimSpace(body.Name))
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal es obligatorio")
		}

		var taken int64
		if err := db.Model(&models.Branch{}).Where("name = ? AND id <> ?", name, branch.ID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fiber.NewError(fiber.StatusConflict, "Ya existe una sucursal con ese nombre")
		}

		before := BranchResponse{ID: branch.ID, Name: branch.Name}
		if err := db.WithContext(c.UserContext()).Model(&branch).Update("name", name).Error; err != nil {
			return err
		}
		branch.Name = name
		after := BranchResponse{ID: branch.ID, Name: branch.Name}

		writeAudit(c, db, log, audit.LogOptions{
			BranchID:    &branch.ID,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionUpdate,
			Description: "Sucursal renombrada: " + before.Name + " -> " + after.Name,
			Before:      before,
			After:       after,
		})

		return c.JSON(after)
	}
}

// POST /admin/branches/:id/manager
func CreateBranchManagerHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := db.WithContext(c.UserContext()).Preload("Manager").First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
			}
			return err
		}
		if branch.Manager != nil {
			return fiber.NewError(fiber.StatusConflict, "La sucursal ya tiene un encargado")
		}

		var body CreateManagerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		user, err := auth.NewUser(body.Username, body.Name, body.Password, models.RoleBranchAdmin, &branch.ID)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidUser) {
				return fiber.NewError(fiber.StatusBadRequest, "Nombre, usuario y contraseña son obligatorios")
			}
			return err
		}

		var taken int64
		if err := db.Model(&models.User{}).Where("username = ?", user.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fiber.NewError(fiber.StatusConflict, "El usuario ya existe")
		}

		if err := db.WithContext(c.UserContext()).Create(user).Error; err != nil {
			return err
		}

		writeAudit(c, db, log, audit.LogOptions{
			BranchID:    &branch.ID,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "Encargado creado para " + branch.Name + ": " + user.Username,
			After:       fiber.Map{"id": user.ID, "username": user.Username, "role": user.Role},
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        user.ID,
			"username":  user.Username,
			"name":      user.Name,
			"role":      user.Role,
			"branch_id": branch.ID,
		})
	}
}

// ----------------------------------------
// CATEGORIES
// ----------------------------------------

// GET /admin/categories
func ListCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cats []models.Category
		if err := db.WithContext(c.UserContext()).Order("name asc").Find(&cats).Error; err != nil {
			return err
		}

		res := make([]CategoryResponse, 0, len(cats))
		for _, cat := range cats {
			res = append(res, CategoryResponse{ID: cat.ID, Name: cat.Name})
		}
		return c.JSON(res)
	}
}

// POST /admin/categories
func CreateCategoryHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.ToUpper(strings.TrimSpace(body.Name))
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la categoría es obligatorio")
		}

		var count int64
		if err := db.Model(&models.Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Ya existe una categoría con ese nombre")
		}

		cat := models.Category{Name: name}
		if err := db.WithContext(c.UserContext()).Create(&cat).Error; err != nil {
			return err
		}

		res := CategoryResponse{ID: cat.ID, Name: cat.Name}
		writeAudit(c, db, log, audit.LogOptions{
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: "Categoría creada: " + cat.Name,
			After:       res,
		})

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// PUT /admin/categories/:id
func RenameCategoryHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cat models.Category
		if err := db.WithContext(c.UserContext()).First(&cat, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Categoría no encontrada")
			}
			return err
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.ToUpper(strings.TrimSpace(body.Name))
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la categoría es obligatorio")
		}

		var taken int64
		if err := db.Model(&models.Category{}).Where("name = ? AND id <> ?", name, cat.ID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fiber.NewError(fiber.StatusConflict, "Ya existe una categoría con ese nombre")
		}

		before := CategoryResponse{ID: cat.ID, Name: cat.Name}
		if err := db.WithContext(c.UserContext()).Model(&cat).Update("name", name).Error; err != nil {
			return err
		}
		cat.Name = name
		after := CategoryResponse{ID: cat.ID, Name: cat.Name}

		writeAudit(c, db, log, audit.LogOptions{
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: "Categoría renombrada: " + before.Name + " -> " + after.Name,
			Before:      before,
			After:       after,
		})

		return c.JSON(after)
	}
}

// ----------------------------------------
// PRODUCTS
// ----------------------------------------

// GET /admin/products?category_id=&branch_id=
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Model(&models.Product{}).Preload("Category").Preload("Branches")
		if cid := c.QueryInt("category_id"); cid > 0 {
			q = q.Where("category_id = ?", cid)
		}
		if bid := c.QueryInt("branch_id"); bid > 0 {
			q = q.Where("id IN (?)", db.Table("product_branches").Select("product_id").Where("branch_id = ?", bid))
		}

		var products []models.Product
		if err := q.Order("name asc").Find(&products).Error; err != nil {
			return err
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, toProductResponse(p))
		}
		return c.JSON(res)
	}
}

// POST /admin/products
func CreateProductHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		p, err := CreateProduct(c.UserContext(), db, body)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}

		res := toProductResponse(*p)
		writeAudit(c, db, log, audit.LogOptions{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Producto creado: " + p.Name,
			After:       res,
		})

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// PUT /admin/products/:id
func UpdateProductHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusNotFound, "Producto no encontrado")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		before, after, err := UpdateProduct(c.UserContext(), db, uint(id), body)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Producto no encontrado")
			case errors.Is(err, ErrInvalidInput):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}

		res := toProductResponse(*after)
		writeAudit(c, db, log, audit.LogOptions{
			EntityType:  "product",
			EntityID:    after.ID,
			Action:      models.AuditActionUpdate,
			Description: "Producto actualizado: " + after.Name,
			Before:      toProductResponse(*before),
			After:       res,
		})

		return c.JSON(res)
	}
}

// POST /admin/catalog/import (multipart, field "file")
func ImportCatalogHandler(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Debe adjuntar un archivo XLSX en el campo 'file'")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No se pudo leer el archivo")
		}
		defer f.Close()

		rows, rejected, err := ParseCatalogSheet(f)
		if err != nil {
			log.Info("catalog import rejected", zap.String("file", fh.Filename), zap.Error(err))
			return fiber.NewError(fiber.StatusBadRequest, "Archivo XLSX inválido o vacío")
		}

		res, err := Import(c.UserContext(), db, rows)
		if err != nil {
			return err
		}
		res.Rejected = append(append([]RejectedRow{}, rejected...), res.Rejected...)

		writeAudit(c, db, log, audit.LogOptions{
			EntityType:  "catalog_import",
			Action:      models.AuditActionUpdate,
			Description: "Importación de catálogo: " + fh.Filename,
			After:       res,
		})

		log.Info("catalog imported",
			zap.String("file", fh.Filename),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("rejected", len(res.Rejected)))

		return c.JSON(res)
	}
}
