package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

const (
	maxPostLength     = 2000
	defaultDifficulty = "moderate"
)

var routeDifficulties = map[string]bool{
	"easy":     true,
	"moderate": true,
	"hard":     true,
	"expert":   true,
}

type contentService struct {
	repo  repository.ContentRepository
	feeds *authorFeeds
	opts  Options
}

func NewContentService(repo repository.ContentRepository, follows repository.FollowRepository, invalidator *Invalidator, opts Options) ContentService {
	return &contentService{
		repo:  repo,
		feeds: newAuthorFeeds(follows, invalidator),
		opts:  opts,
	}
}

// CreatePost stores a post. Hashtags are stored without the leading '#',
// lower-cased and deduplicated.
func (s *contentService) CreatePost(ctx context.Context, userID string, input domain.PostInput) (*domain.Post, error) {
	content := strings.TrimSpace(input.Content)
	if userID == "" || content == "" || len(content) > maxPostLength {
		return nil, ErrInvalidArgument
	}

	tags := make(database.StringArray, 0, len(input.Hashtags))
	for _, tag := range input.Hashtags {
		tags = append(tags, strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	}

	model := &domain.PostModel{
		ID:       uuid.New().String(),
		UserID:   userID,
		Content:  content,
		ImageURL: strings.TrimSpace(input.ImageURL),
		Hashtags: tags.Normalize(),
	}

	opCtx, cancel := s.opts.opContext(ctx)
	err := s.repo.CreatePost(opCtx, model)
	cancel()
	if err != nil {
		return nil, s.fail(ctx, err, userID, "failed to create post")
	}

	s.feeds.changed(ctx, userID)
	audit.LogTarget(ctx, audit.ActionCreatePost, userID, model.ID, "post created")

	post := model.ToDomain()
	return &post, nil
}

func (s *contentService) CreateRoute(ctx context.Context, userID string, input domain.RouteInput) (*domain.Route, error) {
	name := strings.TrimSpace(input.Name)
	difficulty := strings.ToLower(strings.TrimSpace(input.Difficulty))
	if difficulty == "" {
		difficulty = defaultDifficulty
	}
	if userID == "" || name == "" || input.DistanceKM < 0 || !routeDifficulties[difficulty] {
		return nil, ErrInvalidArgument
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	model := &domain.RouteModel{
		ID:          uuid.New().String(),
		CreatorID:   userID,
		Name:        name,
		Description: input.Description,
		DistanceKM:  input.DistanceKM,
		Difficulty:  difficulty,
		IsPublic:    isPublic,
	}

	opCtx, cancel := s.opts.opContext(ctx)
	err := s.repo.CreateRoute(opCtx, model)
	cancel()
	if err != nil {
		return nil, s.fail(ctx, err, userID, "failed to create route")
	}

	if isPublic {
		s.feeds.changed(ctx, userID)
	}
	audit.LogTarget(ctx, audit.ActionCreateRoute, userID, model.ID, "route created")

	route := model.ToDomain()
	return &route, nil
}

func (s *contentService) fail(ctx context.Context, err error, userID, msg string) error {
	err = mapError(err)
	if !isExpected(err) {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg(msg)
	}
	return err
}

// authorFeeds drops the cached feeds that show content by one author: the
// author's own and those of everyone following them.
type authorFeeds struct {
	follows     repository.FollowRepository
	invalidator *Invalidator
}

func newAuthorFeeds(follows repository.FollowRepository, invalidator *Invalidator) *authorFeeds {
	return &authorFeeds{follows: follows, invalidator: invalidator}
}

func (f *authorFeeds) changed(ctx context.Context, authorID string) {
	opCtx, cancel := afterCommit(ctx)
	ids, err := f.follows.FollowerIDs(opCtx, authorID)
	cancel()
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldUserID, authorID).Msg("failed to load followers for feed invalidation")
	}
	f.invalidator.Feeds(ctx, append(ids, authorID)...)
}

// Ensure interface is satisfied at compile time.
var _ ContentService = (*contentService)(nil)
