package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/repository"
)

// GroupScope is the resolved group filter for one request.
type GroupScope struct {
	// GroupID is nil when the report covers every participant.
	GroupID *uint
	// Menu drives the group selector; nil when the course does not use groups.
	Menu *export.GroupMenu
}

// Selected returns the active group id, 0 meaning all participants.
func (g GroupScope) Selected() uint {
	if g.GroupID == nil {
		return 0
	}
	return *g.GroupID
}

// GroupService resolves which group a requester is looking at.
type GroupService interface {
	Resolve(ctx context.Context, cc CourseContext, requested *uint) (GroupScope, error)
}

type groupService struct {
	groups repository.GroupRepository
	access AccessService
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewGroupService constructs the group resolver. The redis client is optional; without it
// the selection is not remembered between requests.
func NewGroupService(groups repository.GroupRepository, access AccessService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) GroupService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &groupService{
		groups: groups,
		access: access,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "group_service").Logger(),
	}
}

func (s *groupService) Resolve(ctx context.Context, cc CourseContext, requested *uint) (GroupScope, error) {
	course := cc.Course
	if !course.UsesGroups() {
		return GroupScope{}, nil
	}

	accessAll, err := s.access.Can(ctx, cc, models.CapabilityAccessAllGroups)
	if err != nil {
		return GroupScope{}, err
	}
	allowAll := accessAll || course.GroupMode == models.GroupModeVisible

	mine, err := s.groups.ListForUser(ctx, course.ID, cc.Requester.UserID)
	if err != nil {
		return GroupScope{}, fmt.Errorf("list requester groups: %w", err)
	}

	allowed := mine
	if allowAll {
		if allowed, err = s.groups.ListByCourse(ctx, course.ID); err != nil {
			return GroupScope{}, fmt.Errorf("list course groups: %w", err)
		}
	}

	permits := func(id uint) bool {
		if id == 0 {
			return allowAll
		}
		for _, group := range allowed {
			if group.ID == id {
				return true
			}
		}
		return false
	}

	selected, found := uint(0), false
	if requested != nil && permits(*requested) {
		selected, found = *requested, true
		s.storeSelection(ctx, cc, selected)
	}

	if !found {
		if stored, ok := s.loadSelection(ctx, cc); ok && permits(stored) {
			selected, found = stored, true
		}
	}

	if !found {
		// First own group, otherwise every participant.
		if len(mine) > 0 {
			selected = mine[0].ID
		}
		s.storeSelection(ctx, cc, selected)
	}

	menu := &export.GroupMenu{
		Mode:     course.GroupMode,
		AllowAll: allowAll,
		Selected: selected,
		Options:  make([]export.GroupOption, 0, len(allowed)),
	}
	for _, group := range allowed {
		menu.Options = append(menu.Options, export.GroupOption{ID: group.ID, Name: group.Name})
	}

	scope := GroupScope{Menu: menu}
	if selected != 0 {
		scope.GroupID = &selected
	}
	return scope, nil
}

func (s *groupService) cacheKey(cc CourseContext) string {
	return fmt.Sprintf("rrc:group:%d:%d", cc.Requester.UserID, cc.Course.ID)
}

func (s *groupService) loadSelection(ctx context.Context, cc CourseContext) (uint, bool) {
	if s.cache == nil {
		return 0, false
	}

	payload, err := s.cache.Get(ctx, s.cacheKey(cc)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read group selection")
		}
		return 0, false
	}

	id, err := strconv.ParseUint(payload, 10, 64)
	if err != nil {
		s.logger.Warn().Err(err).Str("value", payload).Msg("failed to decode group selection")
		return 0, false
	}
	return uint(id), true
}

func (s *groupService) storeSelection(ctx context.Context, cc CourseContext, groupID uint) {
	if s.cache == nil {
		return
	}
	value := strconv.FormatUint(uint64(groupID), 10)
	if err := s.cache.Set(ctx, s.cacheKey(cc), value, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store group selection")
	}
}
