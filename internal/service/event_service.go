package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

const eventStatusPublished = "published"

type eventService struct {
	repo  repository.EventRepository
	cache cache.Cache
	feeds *authorFeeds
	opts  Options
}

// NewEventService creates the event service. A new public event drops the
// cached feeds of the organizer's followers.
func NewEventService(repo repository.EventRepository, follows repository.FollowRepository, c cache.Cache, invalidator *Invalidator, opts Options) EventService {
	return &eventService{
		repo:  repo,
		cache: c,
		feeds: newAuthorFeeds(follows, invalidator),
		opts:  opts,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, organizerID string, input domain.EventInput) (*domain.Event, error) {
	title := strings.TrimSpace(input.Title)
	switch {
	case organizerID == "", title == "", input.StartDate.IsZero():
		return nil, ErrInvalidArgument
	case input.MaxParticipants != nil && *input.MaxParticipants < 0:
		return nil, ErrInvalidArgument
	case input.EntryFee < 0:
		return nil, ErrInvalidArgument
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	model := &domain.EventModel{
		ID:               uuid.New().String(),
		OrganizerID:      organizerID,
		Title:            title,
		Description:      input.Description,
		RallyType:        strings.ToLower(strings.TrimSpace(input.RallyType)),
		Status:           eventStatusPublished,
		IsPublic:         isPublic,
		StartDate:        input.StartDate.UTC(),
		Location:         input.Location,
		EntryFee:         input.EntryFee,
		MaxParticipants:  input.MaxParticipants,
		RequiresApproval: input.RequiresApproval,
	}

	opCtx, cancel := s.opts.opContext(ctx)
	err := s.repo.Create(opCtx, model)
	cancel()
	if err != nil {
		err = mapError(err)
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldUserID, organizerID).Msg("failed to create event")
		return nil, err
	}

	if isPublic {
		s.feeds.changed(ctx, organizerID)
	}
	audit.LogTarget(ctx, audit.ActionCreateEvent, organizerID, model.ID, "event created")
	return model.ToDomain(), nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	return readThrough(ctx, s.cache, cache.EventKey(eventID), s.opts.EventTTL, func() (*domain.Event, error) {
		opCtx, cancel := s.opts.opContext(ctx)
		defer cancel()

		model, err := s.repo.GetByID(opCtx, eventID)
		if err != nil {
			return nil, mapError(err)
		}
		return model.ToDomain(), nil
	})
}

// Ensure interface is satisfied at compile time.
var _ EventService = (*eventService)(nil)
