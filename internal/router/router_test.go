package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/config"
	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/handler"
	"github.com/noah-isme/rawrecordscount/internal/i18n"
	"github.com/noah-isme/rawrecordscount/internal/middleware"
	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/repository"
	"github.com/noah-isme/rawrecordscount/internal/service"
)

const testSecret = "router-secret"

type seeded struct {
	course models.Course
	alice  models.User
	carol  models.User
	dave   models.User
	admin  models.User
}

func setupDB(t *testing.T) (*gorm.DB, seeded) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	s := seeded{
		course: models.Course{ShortName: "C", FullName: "Course C"},
		alice:  models.User{FirstName: "Alice", LastName: "Lastname", Email: "alice@example.com"},
		carol:  models.User{FirstName: "Carol", LastName: "Aardvark", Email: "carol@example.com"},
		dave:   models.User{FirstName: "Dave", LastName: "Outsider", Email: "dave@example.com"},
		admin:  models.User{FirstName: "Ada", LastName: "Admin", Email: "ada@example.com"},
	}
	require.NoError(t, db.Create(&s.course).Error)
	for _, u := range []*models.User{&s.alice, &s.carol, &s.dave, &s.admin} {
		require.NoError(t, db.Create(u).Error)
	}
	bob := models.User{FirstName: "Bob", LastName: "Lastname", Email: "bob@example.com"}
	require.NoError(t, db.Create(&bob).Error)

	for _, id := range []uint{s.alice.ID, bob.ID, s.carol.ID} {
		require.NoError(t, db.Create(&models.Enrolment{CourseID: s.course.ID, UserID: id}).Error)
	}
	require.NoError(t, db.Create(&[]models.RoleAssignment{
		{CourseID: s.course.ID, UserID: s.alice.ID, Role: "student"},
		{CourseID: s.course.ID, UserID: bob.ID, Role: "student"},
		{CourseID: s.course.ID, UserID: s.carol.ID, Role: "editingteacher"},
	}).Error)
	require.NoError(t, db.Create(&[]models.RoleCapability{
		{Role: "editingteacher", Capability: models.CapabilityViewReport},
		{Role: "editingteacher", Capability: models.CapabilityManageActivities},
	}).Error)

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&models.LogEntry{CourseID: s.course.ID, UserID: s.alice.ID, Module: "course", Action: "view"}).Error)
	}
	return db, s
}

func newApp(t *testing.T, db *gorm.DB, cfg config.Config) *fiber.App {
	t.Helper()
	logger := zerolog.Nop()

	locales, err := i18n.NewManager(i18n.LangEN)
	require.NoError(t, err)
	html, err := export.NewHTMLRenderer(export.HTMLOptions{DefaultPictureURL: "/pix/u/f2.png"})
	require.NoError(t, err)

	capabilities := repository.NewCapabilityRepository(db)
	access := service.NewAccessService(repository.NewCourseRepository(db), repository.NewEnrolmentRepository(db), capabilities, logger)
	reports := service.NewReportService(
		access,
		service.NewGroupService(repository.NewGroupRepository(db), access, nil, time.Hour, logger),
		service.NewAuditService(repository.NewLogRepository(db), logger),
		capabilities,
		repository.NewReportRepository(db),
		export.NewDispatcher(html),
		logger,
	)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	Register(app, cfg, Dependencies{
		ReportHandler: handler.NewReportHandler(reports, locales, handler.NewValidator(), logger),
	})
	return app
}

func testConfig() config.Config {
	return config.Config{
		AppName:         "Raw Records Count",
		AppEnv:          "test",
		JWTSecret:       testSecret,
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
	}
}

func bearer(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func get(t *testing.T, app *fiber.App, target, authorization string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestReportDownloadEndToEnd(t *testing.T) {
	db, s := setupDB(t)
	app := newApp(t, db, testConfig())

	target := fmt.Sprintf("/report/rawrecordscount?id=%d&out=txt", s.course.ID)
	resp, body := get(t, app, target, bearer(t, s.carol.ID, "teacher"))

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "attachment; filename=rawrecordscount.txt", resp.Header.Get("Content-Disposition"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	require.Equal(t, "Users\tCount\nAlice Lastname\t2\nBob Lastname\t0\n", body)

	var views int64
	require.NoError(t, db.Model(&models.LogEntry{}).Where("user_id = ? AND module = ?", s.carol.ID, "course").Count(&views).Error)
	require.Equal(t, int64(1), views)
}

func TestReportHTMLEndToEnd(t *testing.T) {
	db, s := setupDB(t)
	app := newApp(t, db, testConfig())

	resp, body := get(t, app, fmt.Sprintf("/report/rawrecordscount?id=%d", s.course.ID), bearer(t, s.carol.ID, "teacher"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, body, "Alice Lastname")
	require.Contains(t, body, "Course C")
}

func TestReportAccessErrors(t *testing.T) {
	db, s := setupDB(t)
	app := newApp(t, db, testConfig())

	cases := []struct {
		name          string
		target        string
		authorization string
		status        int
	}{
		{"missing course before login", "/report/rawrecordscount?id=9999", "", fiber.StatusNotFound},
		{"missing course with unusable token", "/report/rawrecordscount?id=9999", "Bearer garbage", fiber.StatusNotFound},
		{"missing id", "/report/rawrecordscount", "", fiber.StatusNotFound},
		{"non-numeric id", "/report/rawrecordscount?id=abc", bearer(t, s.carol.ID, "teacher"), fiber.StatusNotFound},
		{"zero id", "/report/rawrecordscount?id=0", bearer(t, s.carol.ID, "teacher"), fiber.StatusNotFound},
		{"long unknown format", fmt.Sprintf("/report/rawrecordscount?id=%d&out=xxxxxxxxxxxxxxxxx", s.course.ID), bearer(t, s.carol.ID, "teacher"), fiber.StatusOK},
		{"anonymous", fmt.Sprintf("/report/rawrecordscount?id=%d", s.course.ID), "", fiber.StatusUnauthorized},
		{"invalid token", fmt.Sprintf("/report/rawrecordscount?id=%d", s.course.ID), "Bearer nope", fiber.StatusUnauthorized},
		{"not enrolled", fmt.Sprintf("/report/rawrecordscount?id=%d", s.course.ID), bearer(t, s.dave.ID, "student"), fiber.StatusForbidden},
		{"no capability", fmt.Sprintf("/report/rawrecordscount?id=%d", s.course.ID), bearer(t, s.alice.ID, "student"), fiber.StatusForbidden},
		{"site admin", fmt.Sprintf("/report/rawrecordscount?id=%d&out=ods", s.course.ID), bearer(t, s.admin.ID, "admin"), fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := get(t, app, tc.target, tc.authorization)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestUnknownCourseWritesNothing(t *testing.T) {
	db, s := setupDB(t)
	app := newApp(t, db, testConfig())

	var before int64
	require.NoError(t, db.Model(&models.LogEntry{}).Count(&before).Error)

	for _, target := range []string{"/report/rawrecordscount", "/report/rawrecordscount?id=abc&out=txt", "/report/rawrecordscount?id=0", "/report/rawrecordscount?id=9999&out=xls"} {
		resp, body := get(t, app, target, bearer(t, s.carol.ID, "teacher"))
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode, target)
		require.Empty(t, resp.Header.Get("Content-Disposition"), target)
		require.Contains(t, body, "course not found", target)
	}

	var after int64
	require.NoError(t, db.Model(&models.LogEntry{}).Count(&after).Error)
	require.Equal(t, before, after)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	db, s := setupDB(t)
	app := newApp(t, db, testConfig())

	resp, body := get(t, app, "/api/v1/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Raw Records Count", resp.Header.Get("X-Application"))
	require.Contains(t, body, `"database":"skipped"`)

	get(t, app, fmt.Sprintf("/report/rawrecordscount?id=%d", s.course.ID), "")
	resp, body = get(t, app, "/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, body, "report_requests_total")
}

func TestMetricsAdminOnly(t *testing.T) {
	db, s := setupDB(t)
	cfg := testConfig()
	cfg.MetricsAdminOnly = true
	app := newApp(t, db, cfg)

	resp, _ := get(t, app, "/metrics", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, app, "/metrics", bearer(t, s.carol.ID, "teacher"))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = get(t, app, "/metrics", bearer(t, s.admin.ID, "admin"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthReportsUnreachableDatabase(t *testing.T) {
	app := fiber.New()
	Register(app, testConfig(), Dependencies{DB: failingPinger{}})

	resp, body := get(t, app, "/api/v1/health", "")
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, body, `"database":"unreachable"`)
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error {
	return errors.New("connection refused")
}
