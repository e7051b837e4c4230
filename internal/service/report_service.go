package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/i18n"
	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/observability"
	"github.com/noah-isme/rawrecordscount/internal/repository"
)

// ExportRequest carries everything one report request needs.
type ExportRequest struct {
	CourseID  uint
	Format    export.Format
	Group     *uint
	Requester Requester
	Localizer i18n.Localizer
	// Path is the request path recorded in the audit log.
	Path string
	// Action is the report URL the HTML selectors submit to.
	Action        string
	CorrelationID string
}

// ExportResult summarises a rendered report.
type ExportResult struct {
	Course models.Course
	Format export.Format
	Rows   int
}

// ReportService produces the raw records count report.
type ReportService interface {
	Export(ctx context.Context, req ExportRequest, w export.ResponseWriter) (ExportResult, error)
}

type reportService struct {
	access       AccessService
	groups       GroupService
	audit        AuditService
	capabilities repository.CapabilityRepository
	reports      repository.ReportRepository
	dispatcher   *export.Dispatcher
	tracer       trace.Tracer
	logger       zerolog.Logger
}

// NewReportService wires the report pipeline.
func NewReportService(
	access AccessService,
	groups GroupService,
	audit AuditService,
	capabilities repository.CapabilityRepository,
	reports repository.ReportRepository,
	dispatcher *export.Dispatcher,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		access:       access,
		groups:       groups,
		audit:        audit,
		capabilities: capabilities,
		reports:      reports,
		dispatcher:   dispatcher,
		tracer:       otel.Tracer("github.com/noah-isme/rawrecordscount/internal/service/report"),
		logger:       logger.With().Str("component", "report_service").Logger(),
	}
}

// Export authorizes the requester, records the view, runs the count query and streams the
// rows through the renderer for req.Format. Nothing is written to w before authorization.
func (s *reportService) Export(ctx context.Context, req ExportRequest, w export.ResponseWriter) (ExportResult, error) {
	start := time.Now()
	format := export.ParseFormat(string(req.Format))
	result := ExportResult{Format: format}

	ctx, span := s.tracer.Start(ctx, "report.export", trace.WithAttributes(
		attribute.Int64("report.course_id", int64(req.CourseID)),
		attribute.String("report.format", string(format)),
	))
	defer span.End()

	fail := func(err error, status string) (ExportResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return result, err
	}

	cc, err := s.access.Authorize(ctx, req.CourseID, req.Requester)
	if err != nil {
		return fail(err, "authorization failed")
	}
	result.Course = cc.Course

	scope, err := s.groups.Resolve(ctx, cc, req.Group)
	if err != nil {
		return fail(err, "group resolution failed")
	}

	if err := s.audit.RecordView(ctx, ViewEntry{
		CourseID:      cc.Course.ID,
		UserID:        cc.Requester.UserID,
		Path:          req.Path,
		Format:        string(format),
		CorrelationID: req.CorrelationID,
	}); err != nil {
		return fail(err, "audit failed")
	}

	excluded, err := s.capabilities.UsersWithCapability(ctx, cc.Course.ID, models.CapabilityManageActivities)
	if err != nil {
		return fail(fmt.Errorf("load excluded users: %w", err), "query failed")
	}

	rows, err := s.reports.Rows(ctx, repository.ReportQuery{
		CourseID: cc.Course.ID,
		GroupID:  scope.GroupID,
		Excluded: excluded,
	})
	if err != nil {
		return fail(err, "query failed")
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close report rows")
		}
	}()

	page := export.Page{
		Course:    cc.Course,
		Localizer: req.Localizer,
		Action:    req.Action,
		GroupID:   scope.Selected(),
		GroupMenu: scope.Menu,
	}

	written, err := s.dispatcher.RendererFor(format).Render(w, page, rows)
	result.Rows = written
	if err != nil {
		return fail(fmt.Errorf("render %s report: %w", format, err), "render failed")
	}

	observability.ReportRowsExported().WithLabelValues(string(format)).Add(float64(written))
	span.SetAttributes(attribute.Int("report.rows", written))
	span.SetStatus(codes.Ok, "rendered")

	s.logger.Info().
		Str("correlation_id", req.CorrelationID).
		Uint("course_id", cc.Course.ID).
		Str("format", string(format)).
		Int("excluded", len(excluded)).
		Int("rows", written).
		Dur("duration", time.Since(start)).
		Msg("report rendered")

	return result, nil
}
