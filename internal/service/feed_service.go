package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

type feedSections struct {
	followers, following, suggestions bool
	posts, events, routes             bool
}

var feedTypes = map[string]feedSections{
	domain.FeedAll:         {true, true, true, true, true, true},
	domain.FeedSocial:      {followers: true, following: true, suggestions: true},
	domain.FeedContent:     {posts: true, events: true, routes: true},
	domain.FeedFollowers:   {followers: true},
	domain.FeedFollowing:   {following: true},
	domain.FeedSuggestions: {suggestions: true},
	domain.FeedPosts:       {posts: true},
	domain.FeedEvents:      {events: true},
	domain.FeedRoutes:      {routes: true},
}

type feedService struct {
	graph   FollowGraphService
	follows repository.FollowRepository
	content repository.ContentRepository
	cache   cache.Cache
	opts    Options
	sf      singleflight.Group
}

// NewFeedService creates the feed assembler. Social sections go through
// graph so they share its cached pages.
func NewFeedService(graph FollowGraphService, follows repository.FollowRepository, content repository.ContentRepository, c cache.Cache, opts Options) FeedService {
	return &feedService{
		graph:   graph,
		follows: follows,
		content: content,
		cache:   c,
		opts:    opts,
	}
}

func (s *feedService) GetFeed(ctx context.Context, userID string, q domain.FeedQuery) (*domain.Feed, error) {
	if q.Type == "" {
		q.Type = domain.FeedAll
	}
	sections, ok := feedTypes[q.Type]
	if !ok || userID == "" {
		return nil, ErrInvalidArgument
	}
	q.Limit, q.Offset = normalizePage(q.Limit, q.Offset)

	key := cache.FeedKey(userID, q.Type, q.Limit, q.Offset, q.RallyType, q.Hashtag)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		var cached domain.Feed
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldCacheKey, key).Msg("cache get error")
		}

		feed, err := s.assemble(ctx, userID, q, sections)
		if err != nil {
			return nil, err
		}

		s.asyncCacheSet(key, feed)

		return feed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.Feed), nil
}

func (s *feedService) assemble(ctx context.Context, userID string, q domain.FeedQuery, sections feedSections) (*domain.Feed, error) {
	feed := &domain.Feed{Type: q.Type, Limit: q.Limit, Offset: q.Offset}

	var followed []string
	if sections.posts || sections.events || sections.routes {
		opCtx, cancel := s.opts.opContext(ctx)
		ids, err := s.follows.FollowingIDs(opCtx, userID)
		cancel()
		if err != nil {
			return nil, mapError(err)
		}
		followed = ids
	}

	g, gCtx := errgroup.WithContext(ctx)

	if sections.followers {
		g.Go(func() error {
			var err error
			feed.Followers, err = s.graph.ListFollowers(gCtx, userID, q.Limit, q.Offset)
			return err
		})
	}
	if sections.following {
		g.Go(func() error {
			var err error
			feed.Following, err = s.graph.ListFollowing(gCtx, userID, q.Limit, q.Offset)
			return err
		})
	}
	if sections.suggestions {
		g.Go(func() error {
			var err error
			feed.Suggestions, err = s.graph.SuggestUsers(gCtx, userID, q.Limit, q.Offset)
			return err
		})
	}
	if sections.posts {
		g.Go(func() error {
			opCtx, cancel := s.opts.opContext(gCtx)
			defer cancel()

			authors := append([]string{userID}, followed...)
			posts, err := s.content.RecentPosts(opCtx, authors, q.Hashtag, q.Limit, q.Offset)
			if err != nil {
				return mapError(err)
			}
			feed.Posts = make([]domain.Post, 0, len(posts))
			for i := range posts {
				feed.Posts = append(feed.Posts, posts[i].ToDomain())
			}
			return nil
		})
	}
	if sections.events {
		g.Go(func() error {
			opCtx, cancel := s.opts.opContext(gCtx)
			defer cancel()

			events, err := s.content.UpcomingEvents(opCtx, followed, q.RallyType, q.Limit, q.Offset)
			if err != nil {
				return mapError(err)
			}
			feed.Events = make([]domain.EventSummary, 0, len(events))
			for i := range events {
				feed.Events = append(feed.Events, events[i].ToSummary())
			}
			return nil
		})
	}
	if sections.routes {
		g.Go(func() error {
			opCtx, cancel := s.opts.opContext(gCtx)
			defer cancel()

			routes, err := s.content.RecentRoutes(opCtx, followed, q.Limit, q.Offset)
			if err != nil {
				return mapError(err)
			}
			feed.Routes = make([]domain.Route, 0, len(routes))
			for i := range routes {
				feed.Routes = append(feed.Routes, routes[i].ToDomain())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feed, nil
}

func (s *feedService) asyncCacheSet(key string, feed *domain.Feed) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), postCommitTimeout)
		defer cancel()

		if err := s.cache.Set(ctx, key, feed, s.opts.FeedTTL); err != nil {
			l := pkglog.L()
			l.Warn().Err(err).Str(pkglog.FieldCacheKey, key).Msg("cache set error")
		}
	}()
}

// Ensure interface is satisfied at compile time.
var _ FeedService = (*feedService)(nil)
