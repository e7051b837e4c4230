package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/repository"
)

var (
	// ErrCourseNotFound indicates the course identifier does not resolve.
	ErrCourseNotFound = errors.New("course not found")
	// ErrNotAuthenticated indicates the request carries no logged-in user.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrCourseAccessDenied indicates the user is neither enrolled nor assigned a role in the course.
	ErrCourseAccessDenied = errors.New("course access denied")
	// ErrMissingCapability indicates the user lacks the capability to view the report.
	ErrMissingCapability = errors.New("missing capability")
)

// RoleSiteAdmin is the token role that holds every capability in every course.
const RoleSiteAdmin = "admin"

// Requester identifies the authenticated caller.
type Requester struct {
	UserID uint
	Role   string
}

// IsSiteAdmin reports whether the requester bypasses course capability checks.
func (r Requester) IsSiteAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(r.Role), RoleSiteAdmin)
}

// CourseContext is the outcome of a successful authorization.
type CourseContext struct {
	Course    models.Course
	Requester Requester
}

// AccessService gates report access.
type AccessService interface {
	Authorize(ctx context.Context, courseID uint, requester Requester) (CourseContext, error)
	Can(ctx context.Context, cc CourseContext, capability string) (bool, error)
}

type accessService struct {
	courses      repository.CourseRepository
	enrolments   repository.EnrolmentRepository
	capabilities repository.CapabilityRepository
	logger       zerolog.Logger
}

// NewAccessService constructs the access gate.
func NewAccessService(courses repository.CourseRepository, enrolments repository.EnrolmentRepository, capabilities repository.CapabilityRepository, logger zerolog.Logger) AccessService {
	return &accessService{
		courses:      courses,
		enrolments:   enrolments,
		capabilities: capabilities,
		logger:       logger.With().Str("component", "access_service").Logger(),
	}
}

// Authorize resolves the course, then checks login, course participation and the view
// capability, in that order. It has no side effects.
func (s *accessService) Authorize(ctx context.Context, courseID uint, requester Requester) (CourseContext, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseContext{}, ErrCourseNotFound
		}
		return CourseContext{}, fmt.Errorf("load course %d: %w", courseID, err)
	}

	if requester.UserID == 0 {
		return CourseContext{}, ErrNotAuthenticated
	}

	cc := CourseContext{Course: course, Requester: requester}
	if requester.IsSiteAdmin() {
		return cc, nil
	}

	permitted, err := s.participates(ctx, course.ID, requester.UserID)
	if err != nil {
		return CourseContext{}, err
	}
	if !permitted {
		s.logger.Debug().Uint("course_id", course.ID).Uint("user_id", requester.UserID).Msg("user does not participate in course")
		return CourseContext{}, ErrCourseAccessDenied
	}

	allowed, err := s.Can(ctx, cc, models.CapabilityViewReport)
	if err != nil {
		return CourseContext{}, err
	}
	if !allowed {
		return CourseContext{}, ErrMissingCapability
	}

	return cc, nil
}

func (s *accessService) participates(ctx context.Context, courseID, userID uint) (bool, error) {
	enrolled, err := s.enrolments.IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return false, fmt.Errorf("check enrolment: %w", err)
	}
	if enrolled {
		return true, nil
	}

	assigned, err := s.capabilities.HasRole(ctx, courseID, userID)
	if err != nil {
		return false, fmt.Errorf("check role assignment: %w", err)
	}
	return assigned, nil
}

// Can reports whether the requester holds capability in the course.
func (s *accessService) Can(ctx context.Context, cc CourseContext, capability string) (bool, error) {
	if cc.Requester.IsSiteAdmin() {
		return true, nil
	}

	ok, err := s.capabilities.HasCapability(ctx, cc.Course.ID, cc.Requester.UserID, capability)
	if err != nil {
		return false, fmt.Errorf("check capability %s: %w", capability, err)
	}
	return ok, nil
}
