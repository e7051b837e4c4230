package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/models"
)

// ReportQuery scopes the per-user log count.
type ReportQuery struct {
	CourseID uint
	// GroupID limits the report to members of one group; nil means every group.
	GroupID *uint
	// Excluded lists users left out of the report regardless of enrolment.
	Excluded []uint
}

// ReportRows is a forward-only cursor over report rows. Close must be called once the
// consumer is done, including when it stops early.
type ReportRows interface {
	Next() bool
	Row() models.ReportRow
	Err() error
	Close() error
}

// ReportRepository runs the raw records count aggregation.
type ReportRepository interface {
	Rows(ctx context.Context, query ReportQuery) (ReportRows, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository instantiates a GORM-backed repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// reportUserColumns are selected and grouped on; every non-aggregated column must appear in
// GROUP BY for postgres.
var reportUserColumns = []string{
	"u.id",
	"u.first_name",
	"u.last_name",
	"u.picture",
	"u.image_alt",
	"u.email",
}

// BuildReportSQL renders the aggregation query and its positional arguments.
func BuildReportSQL(query ReportQuery) (string, []interface{}) {
	columns := strings.Join(reportUserColumns, ", ")
	args := make([]interface{}, 0, 5)

	var enrolled strings.Builder
	enrolled.WriteString("SELECT DISTINCT e.user_id AS id FROM enrolments e JOIN users eu ON eu.id = e.user_id")
	if query.GroupID != nil {
		enrolled.WriteString(" JOIN group_members gm ON gm.user_id = e.user_id AND gm.group_id = ?")
		args = append(args, *query.GroupID)
	}
	enrolled.WriteString(" WHERE e.course_id = ? AND eu.deleted = ?")
	args = append(args, query.CourseID, false)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s, COUNT(l.id) AS count FROM users u", columns)
	fmt.Fprintf(&sb, " JOIN (%s) je ON je.id = u.id", enrolled.String())
	sb.WriteString(" LEFT JOIN log_entries l ON l.user_id = u.id AND l.course_id = ?")
	args = append(args, query.CourseID)

	if len(query.Excluded) > 0 {
		sb.WriteString(" WHERE u.id NOT IN ?")
		args = append(args, query.Excluded)
	}

	fmt.Fprintf(&sb, " GROUP BY %s", columns)
	sb.WriteString(" ORDER BY u.last_name, u.first_name, u.id")

	return sb.String(), args
}

func (r *reportRepository) Rows(ctx context.Context, query ReportQuery) (ReportRows, error) {
	statement, args := BuildReportSQL(query)

	rows, err := r.db.WithContext(ctx).Raw(statement, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("run report query: %w", err)
	}

	return &reportRows{rows: rows}, nil
}

type reportRows struct {
	rows    *sql.Rows
	current models.ReportRow
	err     error
	closed  bool
}

func (r *reportRows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if !r.rows.Next() {
		return false
	}

	var row models.ReportRow
	var imageAlt sql.NullString
	if err := r.rows.Scan(
		&row.UserID,
		&row.FirstName,
		&row.LastName,
		&row.Picture,
		&imageAlt,
		&row.Email,
		&row.Count,
	); err != nil {
		r.err = fmt.Errorf("scan report row: %w", err)
		return false
	}
	row.ImageAlt = imageAlt.String
	r.current = row

	return true
}

func (r *reportRows) Row() models.ReportRow {
	return r.current
}

func (r *reportRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *reportRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}
