package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/rawrecordscount/internal/dto"
	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/i18n"
	"github.com/noah-isme/rawrecordscount/internal/middleware"
	"github.com/noah-isme/rawrecordscount/internal/service"
	"github.com/noah-isme/rawrecordscount/internal/utils"
)

// ReportHandler serves the raw records count report.
type ReportHandler struct {
	service   service.ReportService
	locales   *i18n.Manager
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReportHandler constructs the report handler.
func NewReportHandler(service service.ReportService, locales *i18n.Manager, validate *validator.Validate, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service:   service,
		locales:   locales,
		validator: validate,
		logger:    logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires report routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/rawrecordscount", h.show)
}

func (h *ReportHandler) show(c *fiber.Ctx) error {
	// A missing or unparsable id names no course.
	courseID, err := parseQueryUint(c, "id")
	if err != nil || courseID == nil || *courseID == 0 {
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	}
	group, err := parseQueryUint(c, "group")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group")
	}

	req := dto.ReportRequest{
		CourseID: *courseID,
		Out:      strings.TrimSpace(c.Query("out")),
		Group:    group,
		Lang:     strings.TrimSpace(c.Query("lang")),
	}
	if err := h.validator.Struct(req); err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid report parameters", validationDetails(err))
		}
		return utils.SendError(c, fiber.StatusBadRequest, "invalid report parameters")
	}

	language := h.locales.Resolve(req.Lang, c.Get(fiber.HeaderAcceptLanguage))
	buf := export.NewBuffer()
	result, err := h.service.Export(c.UserContext(), service.ExportRequest{
		CourseID:      req.CourseID,
		Format:        export.ParseFormat(req.Out),
		Group:         req.Group,
		Requester:     requesterFromContext(c),
		Localizer:     h.locales.Localizer(language),
		Path:          c.OriginalURL(),
		Action:        c.Path(),
		CorrelationID: middleware.GetCorrelationID(c),
	}, buf)
	if err != nil {
		return h.fail(c, req, err)
	}

	requestLogger(h.logger, c).Debug().
		Uint("course_id", result.Course.ID).
		Str("format", string(result.Format)).
		Int("rows", result.Rows).
		Msg("report sent")

	for key, values := range buf.Header {
		for _, value := range values {
			c.Set(key, value)
		}
	}
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

func (h *ReportHandler) fail(c *fiber.Ctx, req dto.ReportRequest, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotAuthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrCourseAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "not permitted in this course")
	case errors.Is(err, service.ErrMissingCapability):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		requestLogger(h.logger, c).Error().Err(err).
			Uint("course_id", req.CourseID).
			Str("out", req.Out).
			Msg("failed to render report")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to render report")
	}
}
