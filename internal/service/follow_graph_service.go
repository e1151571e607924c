package service

import (
	"context"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// followGraphService implements FollowGraphService.
type followGraphService struct {
	repo        repository.FollowRepository
	cache       cache.Cache
	invalidator *Invalidator
	notifier    *Notifier
	opts        Options
}

// NewFollowGraphService creates a new FollowGraphService instance.
func NewFollowGraphService(repo repository.FollowRepository, c cache.Cache, invalidator *Invalidator, notifier *Notifier, opts Options) FollowGraphService {
	return &followGraphService{
		repo:        repo,
		cache:       c,
		invalidator: invalidator,
		notifier:    notifier,
		opts:        opts,
	}
}

// FollowUser creates the edge followerID -> followingID. Following twice is
// a conflict, not a no-op.
func (s *followGraphService) FollowUser(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return ErrInvalidArgument
	}
	if followerID == followingID {
		return ErrSelfFollow
	}

	opCtx, cancel := s.opts.opContext(ctx)
	err := s.repo.Follow(opCtx, followerID, followingID)
	cancel()
	if err != nil {
		return s.fail(ctx, err, followerID, followingID, "failed to follow user")
	}

	s.invalidator.Follow(ctx, followerID, followingID)
	s.notifier.Publish(ctx, EventFollowed, followerID, FollowPayload{FollowerID: followerID, FollowingID: followingID})
	audit.LogTarget(ctx, audit.ActionFollow, followerID, followingID, "user followed")

	return nil
}

// UnfollowUser removes the edge if it exists. Repeating it is a no-op success.
func (s *followGraphService) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return ErrInvalidArgument
	}

	opCtx, cancel := s.opts.opContext(ctx)
	removed, err := s.repo.Unfollow(opCtx, followerID, followingID)
	cancel()
	if err != nil {
		return s.fail(ctx, err, followerID, followingID, "failed to unfollow user")
	}

	s.invalidator.Follow(ctx, followerID, followingID)
	if removed {
		s.notifier.Publish(ctx, EventUnfollowed, followerID, FollowPayload{FollowerID: followerID, FollowingID: followingID})
		audit.LogTarget(ctx, audit.ActionUnfollow, followerID, followingID, "user unfollowed")
	}

	return nil
}

func (s *followGraphService) ListFollowers(ctx context.Context, userID string, limit, offset int) (*domain.UserPage, error) {
	return s.listPage(ctx, cache.KindFollowers, userID, limit, offset, s.repo.ListFollowers)
}

func (s *followGraphService) ListFollowing(ctx context.Context, userID string, limit, offset int) (*domain.UserPage, error) {
	return s.listPage(ctx, cache.KindFollowing, userID, limit, offset, s.repo.ListFollowing)
}

type listFunc func(ctx context.Context, userID string, limit, offset int) ([]domain.UserModel, int64, error)

func (s *followGraphService) listPage(ctx context.Context, kind, userID string, limit, offset int, list listFunc) (*domain.UserPage, error) {
	limit, offset = normalizePage(limit, offset)
	key := cache.FollowListKey(kind, userID, limit, offset)

	return readThrough(ctx, s.cache, key, s.opts.FollowTTL, func() (*domain.UserPage, error) {
		opCtx, cancel := s.opts.opContext(ctx)
		defer cancel()

		users, total, err := list(opCtx, userID, limit, offset)
		if err != nil {
			return nil, s.fail(ctx, err, userID, "", "failed to list "+kind)
		}

		page := &domain.UserPage{Users: make([]domain.UserSummary, 0, len(users)), Total: total, Limit: limit, Offset: offset}
		for i := range users {
			page.Users = append(page.Users, users[i].ToSummary())
		}
		return page, nil
	})
}

// SuggestUsers ranks users not yet followed by car similarity, then
// follower count, then recency.
func (s *followGraphService) SuggestUsers(ctx context.Context, userID string, limit, offset int) (*domain.UserPage, error) {
	limit, offset = normalizePage(limit, offset)
	key := cache.FollowListKey(cache.KindSuggestions, userID, limit, offset)

	return readThrough(ctx, s.cache, key, s.opts.FollowTTL, func() (*domain.UserPage, error) {
		opCtx, cancel := s.opts.opContext(ctx)
		defer cancel()

		rows, total, err := s.repo.Suggest(opCtx, userID, limit, offset)
		if err != nil {
			return nil, s.fail(ctx, err, userID, "", "failed to suggest users")
		}

		page := &domain.UserPage{Users: make([]domain.UserSummary, 0, len(rows)), Total: total, Limit: limit, Offset: offset}
		for i := range rows {
			summary := rows[i].UserModel.ToSummary()
			summary.CarSimilarity = rows[i].CarSimilarity
			page.Users = append(page.Users, summary)
		}
		return page, nil
	})
}

// fail maps err and logs it unless it is a caller error.
func (s *followGraphService) fail(ctx context.Context, err error, userID, targetID, msg string) error {
	err = mapError(err)
	if !isExpected(err) {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).
			Str(pkglog.FieldUserID, userID).
			Str(pkglog.FieldTargetUserID, targetID).
			Msg(msg)
	}
	return err
}

// Ensure interface is satisfied at compile time.
var _ FollowGraphService = (*followGraphService)(nil)
