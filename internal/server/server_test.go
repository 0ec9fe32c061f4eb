package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/catalog"
	"cardelfi-backend/internal/config"
	"cardelfi-backend/internal/models"
	"cardelfi-backend/internal/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	app      *fiber.App
	db       *gorm.DB
	calacoto models.Branch
	sanPedro models.Branch
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.New(t)
	if _, err := catalog.SeedCardelfi(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := &env{db: db}
	db.Where("name = ?", "CALACOTO").First(&e.calacoto)
	db.Where("name = ?", "SAN PEDRO").First(&e.sanPedro)

	createUser(t, db, "admin", models.RoleSuperAdmin, nil)
	createUser(t, db, "calacoto", models.RoleBranchAdmin, &e.calacoto.ID)

	cfg := &config.Config{
		AppEnv:       "test",
		JWTSecret:    strings.Repeat("s", 32),
		SessionTTL:   time.Hour,
		CORSOrigins:  "http://localhost:8080",
		Location:     time.UTC,
		PastryMarker: "SALTEÑA",
	}
	e.app = New(cfg, db, zap.NewNop())
	return e
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole, branchID *uint) {
	t.Helper()
	u, err := auth.NewUser(username, strings.ToUpper(username), "secreto123", role, branchID)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (e *env) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	return resp
}

func (e *env) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"secreto123"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := e.do(t, req)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login %s: want 302, got %d", username, resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func get(path string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func postForm(path string, form url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func (e *env) saveClosing(t *testing.T, cookie *http.Cookie, form url.Values) uint {
	t.Helper()
	resp := e.do(t, postForm("/guardar/", form, cookie))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("guardar: want 200, got %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Status string `json:"status"`
		CajaID uint   `json:"caja_id"`
	}
	decode(t, resp, &out)
	if out.Status != "success" || out.CajaID == 0 {
		t.Fatalf("unexpected guardar response %+v", out)
	}
	return out.CajaID
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, get("/healthz", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var body map[string]bool
	decode(t, resp, &body)
	if !body["ok"] {
		t.Fatalf("unexpected body %v", body)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Fatal("request id header missing")
	}
}

func TestLoginPageAndBadCredentials(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, get("/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login page: want 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `name="password"`) {
		t.Fatal("login form not rendered")
	}

	form := url.Values{"username": {"admin"}, "password": {"incorrecta"}}
	resp = e.do(t, postForm("/", form, nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password: want 401, got %d", resp.StatusCode)
	}
}

func TestLoginRedirectsToNext(t *testing.T) {
	e := newEnv(t)
	form := url.Values{"username": {"admin"}, "password": {"secreto123"}, "next": {"/historial/"}}
	resp := e.do(t, postForm("/", form, nil))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/historial/" {
		t.Fatalf("want redirect to /historial/, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	form.Set("next", "//evil.example")
	resp = e.do(t, postForm("/", form, nil))
	if resp.Header.Get("Location") != "/sucursales/" {
		t.Fatalf("external next must be ignored, got %q", resp.Header.Get("Location"))
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, get("/historial/", nil))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("page: want 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/?next=") {
		t.Fatalf("unexpected redirect %q", loc)
	}

	resp = e.do(t, postForm("/guardar/", url.Values{"sucursal_id": {"1"}}, nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post: want 401, got %d", resp.StatusCode)
	}
}

func TestClosingFlowAndReports(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	var carne models.Product
	e.db.Where("name = ?", "CARNE").First(&carne)

	id := e.saveClosing(t, cookie, url.Values{
		"sucursal_id":                 {fmt.Sprint(e.calacoto.ID)},
		"caja_efectivo":               {"100"},
		"caja_qr":                     {"50"},
		"caja_tarjeta":                {"0"},
		fmt.Sprintf("s_%d", carne.ID): {"10"},
		fmt.Sprintf("p_%d", carne.ID): {"diez"},
		"personal":                    {"Ana", "Luis"},
	})

	resp := e.do(t, get(fmt.Sprintf("/ver-planilla/?caja_id=%d", id), cookie))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: want 200, got %d", resp.StatusCode)
	}
	html, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(html), "70.00") || !strings.Contains(string(html), "CALACOTO") {
		t.Fatal("preview should show the branch and a 70.00 variance")
	}

	resp = e.do(t, get(fmt.Sprintf("/generar-pdf/?caja_id=%d", id), cookie))
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "inline;") || !strings.Contains(cd, "Reporte_CALACOTO_") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	pdf, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}

	resp = e.do(t, get(fmt.Sprintf("/generar-pdf/?caja_id=%d&descargar=1", id), cookie))
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Fatalf("descargar=1 should be an attachment, got %q", cd)
	}

	resp = e.do(t, get(fmt.Sprintf("/generar-xlsx/?caja_id=%d", id), cookie))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("xlsx: want 200, got %d", resp.StatusCode)
	}
	book, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("xlsx body: %v", err)
	}
	book.Close()

	resp = e.do(t, get("/historial/", cookie))
	page, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), fmt.Sprintf("caja_id=%d", id)) {
		t.Fatalf("history should list closing %d (status %d)", id, resp.StatusCode)
	}

	var logs int64
	e.db.Model(&models.AuditLog{}).Where("entity_type = ? AND entity_id = ?", "cash_closing", id).Count(&logs)
	if logs != 1 {
		t.Fatalf("want one audit entry for the closing, got %d", logs)
	}
}

func TestReportNotFound(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	for _, q := range []string{"", "?caja_id=abc", "?caja_id=999"} {
		resp := e.do(t, get("/generar-pdf/"+q, cookie))
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("generar-pdf%s: want 404, got %d", q, resp.StatusCode)
		}
	}
	resp := e.do(t, get("/ver-planilla/?caja_id=999", cookie))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ver-planilla: want 404, got %d", resp.StatusCode)
	}
}

func TestSaveUnknownBranch(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	resp := e.do(t, postForm("/guardar/", url.Values{"sucursal_id": {"999"}}, cookie))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
}

func TestBranchAdminScope(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "calacoto")

	resp := e.do(t, get("/sucursales/", cookie))
	page, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(page), "SAN PEDRO") || !strings.Contains(string(page), "CALACOTO") {
		t.Fatal("branch admin should only see its own branch")
	}

	resp = e.do(t, get(fmt.Sprintf("/productos/?sucursal_id=%d", e.sanPedro.ID), cookie))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign planilla: want 403, got %d", resp.StatusCode)
	}

	resp = e.do(t, postForm("/guardar/", url.Values{"sucursal_id": {fmt.Sprint(e.sanPedro.ID)}}, cookie))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign closing: want 403, got %d", resp.StatusCode)
	}

	own := e.saveClosing(t, cookie, url.Values{"sucursal_id": {fmt.Sprint(e.calacoto.ID)}})
	resp = e.do(t, get(fmt.Sprintf("/generar-pdf/?caja_id=%d", own), cookie))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("own report: want 200, got %d", resp.StatusCode)
	}

	admin := e.login(t, "admin")
	foreign := e.saveClosing(t, admin, url.Values{"sucursal_id": {fmt.Sprint(e.sanPedro.ID)}})
	resp = e.do(t, get(fmt.Sprintf("/generar-pdf/?caja_id=%d", foreign), cookie))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign report: want 403, got %d", resp.StatusCode)
	}

	resp = e.do(t, get("/admin/branches", cookie))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin api: want 403, got %d", resp.StatusCode)
	}
}

func TestPlanillaPage(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	resp := e.do(t, get("/productos/", cookie))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/sucursales/" {
		t.Fatalf("missing sucursal_id should redirect, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = e.do(t, get("/productos/?sucursal_id=999", cookie))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown branch: want 404, got %d", resp.StatusCode)
	}

	var carne models.Product
	e.db.Where("name = ?", "CARNE").First(&carne)
	resp = e.do(t, get(fmt.Sprintf("/productos/?sucursal_id=%d", e.calacoto.ID), cookie))
	page, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), fmt.Sprintf(`name="s_%d"`, carne.ID)) {
		t.Fatalf("planilla should include the sale input for CARNE (status %d)", resp.StatusCode)
	}
}

func TestExtraExpenseCountsInReport(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	resp := e.do(t, postForm("/gastos-extra/", url.Values{
		"sucursal_id": {fmt.Sprint(e.calacoto.ID)},
		"descripcion": {"Garrafa"},
		"monto":       {"30"},
	}, cookie))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("gastos-extra: want 201, got %d", resp.StatusCode)
	}

	resp = e.do(t, postForm("/gastos-extra/", url.Values{
		"sucursal_id": {fmt.Sprint(e.calacoto.ID)},
		"monto":       {"5"},
		"fecha":       {"04/03/2026"},
	}, cookie))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad fecha: want 400, got %d", resp.StatusCode)
	}

	id := e.saveClosing(t, cookie, url.Values{
		"sucursal_id":   {fmt.Sprint(e.calacoto.ID)},
		"caja_efectivo": {"10"},
	})
	resp = e.do(t, get(fmt.Sprintf("/ver-planilla/?caja_id=%d", id), cookie))
	page, _ := io.ReadAll(resp.Body)
	// 10 collected, nothing sold, 30 spent
	if !strings.Contains(string(page), "Garrafa") || !strings.Contains(string(page), "40.00") {
		t.Fatal("extra expense should appear in the report and raise the variance to 40.00")
	}
}

func TestAdminProductAPI(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	var cat models.Category
	e.db.Where("name = ?", "JUGOS").First(&cat)

	body := fmt.Sprintf(`{"name":"MOCOCHINCHI","category_id":%d,"unit_price":"6.50","branch_ids":[%d]}`, cat.ID, e.calacoto.ID)
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp := e.do(t, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: want 201, got %d", resp.StatusCode)
	}
	var created catalog.ProductResponse
	decode(t, resp, &created)
	if created.Category != "JUGOS" || created.UnitPrice.String() != "6.5" || len(created.BranchIDs) != 1 {
		t.Fatalf("unexpected product %+v", created)
	}

	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/products/%d", created.ID), strings.NewReader(`{"unit_price":"-1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	if resp := e.do(t, req); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative price: want 400, got %d", resp.StatusCode)
	}

	var logs int64
	e.db.Model(&models.AuditLog{}).Where("entity_type = ?", "product").Count(&logs)
	if logs != 1 {
		t.Fatalf("want one product audit entry, got %d", logs)
	}
}

func TestAdminCatalogImport(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	book := excelize.NewFile()
	rows := [][]any{
		{"Categoria", "Producto", "Precio", "Sucursales"},
		{"SALTEÑAS", "CARNE", 8.5, ""},
		{"POSTRES", "GELATINA", 4, "SAN PEDRO"},
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		book.SetSheetRow("Sheet1", cell, &rows[i])
	}
	xlsx, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("workbook: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "catalogo.xlsx")
	fw.Write(xlsx.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	resp := e.do(t, req)
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("import: want 200, got %d: %s", resp.StatusCode, msg)
	}
	var res catalog.ImportResult
	decode(t, resp, &res)
	if res.Created != 1 || res.Updated != 1 || len(res.Rejected) != 0 {
		t.Fatalf("unexpected import result %+v", res)
	}
}

func TestRegisterSuperAdminOnlyOnce(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/register-super-admin",
		strings.NewReader(`{"name":"Otro","username":"otro","password":"clave"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := e.do(t, req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 while a super admin exists, got %d", resp.StatusCode)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, get("/logout", nil))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("logout: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			t.Fatal("session cookie should be cleared")
		}
	}
}

func (e *env) postJSON(t *testing.T, path, body string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	return e.do(t, req)
}

func TestAdminBranchAndManager(t *testing.T) {
	e := newEnv(t)
	cookie := e.login(t, "admin")

	resp := e.postJSON(t, "/admin/branches", `{"name":" el alto "}`, cookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create branch: want 201, got %d", resp.StatusCode)
	}
	var branch catalog.BranchResponse
	decode(t, resp, &branch)
	if branch.Name != "EL ALTO" {
		t.Fatalf("branch name should be normalised, got %q", branch.Name)
	}

	if resp := e.postJSON(t, "/admin/branches", `{"name":"EL ALTO"}`, cookie); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate branch: want 409, got %d", resp.StatusCode)
	}

	path := fmt.Sprintf("/admin/branches/%d/manager", branch.ID)
	resp = e.postJSON(t, path, `{"name":"Rosa","username":"rosa","password":"secreto123"}`, cookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create manager: want 201, got %d", resp.StatusCode)
	}
	if resp := e.postJSON(t, path, `{"name":"Otra","username":"otra","password":"secreto123"}`, cookie); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second manager: want 409, got %d", resp.StatusCode)
	}

	manager := e.login(t, "rosa")
	resp = e.do(t, get("/sucursales/", manager))
	page, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(page), "EL ALTO") || strings.Contains(string(page), "CALACOTO") {
		t.Fatal("new manager should only see EL ALTO")
	}

	resp = e.do(t, get("/admin/audit-logs?entity_type=branch", cookie))
	var logs []map[string]any
	decode(t, resp, &logs)
	if len(logs) != 1 {
		t.Fatalf("want one branch audit entry, got %d", len(logs))
	}
}
