package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/i18n"
	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/repository"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mini, client
}

type fixture struct {
	course models.Course
	alice  models.User // student, Group A, 2 entries
	bob    models.User // student, Group B, no entries
	carol  models.User // editing teacher, 5 entries
	tom    models.User // non-editing teacher by role only, not enrolled
	dave   models.User // unrelated to the course
	groupA models.Group
	groupB models.Group
}

func seedFixture(t *testing.T, db *gorm.DB, mode models.GroupMode) fixture {
	t.Helper()
	f := fixture{
		course: models.Course{ShortName: "C", FullName: "Course C", GroupMode: mode},
		alice:  models.User{FirstName: "Alice", LastName: "Lastname", Email: "alice@example.com"},
		bob:    models.User{FirstName: "Bob", LastName: "Lastname", Email: "bob@example.com"},
		carol:  models.User{FirstName: "Carol", LastName: "Aardvark", Email: "carol@example.com"},
		tom:    models.User{FirstName: "Tom", LastName: "Tutor", Email: "tom@example.com"},
		dave:   models.User{FirstName: "Dave", LastName: "Outsider", Email: "dave@example.com"},
	}
	require.NoError(t, db.Create(&f.course).Error)
	for _, u := range []*models.User{&f.alice, &f.bob, &f.carol, &f.tom, &f.dave} {
		require.NoError(t, db.Create(u).Error)
	}
	for _, u := range []*models.User{&f.alice, &f.bob, &f.carol} {
		require.NoError(t, db.Create(&models.Enrolment{CourseID: f.course.ID, UserID: u.ID}).Error)
	}

	f.groupA = models.Group{CourseID: f.course.ID, Name: "Group A"}
	f.groupB = models.Group{CourseID: f.course.ID, Name: "Group B"}
	require.NoError(t, db.Create(&f.groupA).Error)
	require.NoError(t, db.Create(&f.groupB).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: f.groupA.ID, UserID: f.alice.ID}).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: f.groupB.ID, UserID: f.bob.ID}).Error)

	assignments := []models.RoleAssignment{
		{CourseID: f.course.ID, UserID: f.alice.ID, Role: "student"},
		{CourseID: f.course.ID, UserID: f.bob.ID, Role: "student"},
		{CourseID: f.course.ID, UserID: f.carol.ID, Role: "editingteacher"},
		{CourseID: f.course.ID, UserID: f.tom.ID, Role: "teacher"},
	}
	require.NoError(t, db.Create(&assignments).Error)

	capabilities := []models.RoleCapability{
		{Role: "editingteacher", Capability: models.CapabilityViewReport},
		{Role: "editingteacher", Capability: models.CapabilityManageActivities},
		{Role: "editingteacher", Capability: models.CapabilityAccessAllGroups},
		{Role: "teacher", Capability: models.CapabilityViewReport},
	}
	require.NoError(t, db.Create(&capabilities).Error)

	addEntries(t, db, f.course.ID, f.alice.ID, 2)
	addEntries(t, db, f.course.ID, f.carol.ID, 5)
	return f
}

func addEntries(t *testing.T, db *gorm.DB, courseID, userID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.LogEntry{
			CourseID: courseID,
			UserID:   userID,
			Module:   "course",
			Action:   "view",
		}).Error)
	}
}

func countViews(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.LogEntry{}).Where("action = ?", auditAction).Count(&count).Error)
	return count
}

func newAccess(db *gorm.DB) AccessService {
	return NewAccessService(
		repository.NewCourseRepository(db),
		repository.NewEnrolmentRepository(db),
		repository.NewCapabilityRepository(db),
		zerolog.Nop(),
	)
}

// trackedRows records how often the cursor was released.
type trackedRows struct {
	repository.ReportRows
	closed int
}

func (r *trackedRows) Close() error {
	r.closed++
	return r.ReportRows.Close()
}

// countingReports counts report queries and keeps the last cursor handed out.
type countingReports struct {
	repository.ReportRepository
	calls int
	last  *trackedRows
}

func (c *countingReports) Rows(ctx context.Context, query repository.ReportQuery) (repository.ReportRows, error) {
	c.calls++
	rows, err := c.ReportRepository.Rows(ctx, query)
	if err != nil {
		return nil, err
	}
	c.last = &trackedRows{ReportRows: rows}
	return c.last, nil
}

type reportHarness struct {
	db      *gorm.DB
	reports *countingReports
	service ReportService
	loc     i18n.Localizer
}

func newReportHarness(t *testing.T, db *gorm.DB, cache *redis.Client) reportHarness {
	t.Helper()

	html, err := export.NewHTMLRenderer(export.HTMLOptions{DefaultPictureURL: "/pix/u/f2.png"})
	require.NoError(t, err)

	manager, err := i18n.NewManager(i18n.LangEN)
	require.NoError(t, err)

	access := newAccess(db)
	reports := &countingReports{ReportRepository: repository.NewReportRepository(db)}
	svc := NewReportService(
		access,
		NewGroupService(repository.NewGroupRepository(db), access, cache, time.Hour, zerolog.Nop()),
		NewAuditService(repository.NewLogRepository(db), zerolog.Nop()),
		repository.NewCapabilityRepository(db),
		reports,
		export.NewDispatcher(html),
		zerolog.Nop(),
	)

	return reportHarness{db: db, reports: reports, service: svc, loc: manager.Localizer(i18n.LangEN)}
}

func uintPtr(v uint) *uint {
	return &v
}
