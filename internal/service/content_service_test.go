package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	"github.com/ncpierced1371/throttle-meet-backend/internal/testutil"
)

func newContent(e *testEnv) ContentService {
	return NewContentService(repository.NewGormContentRepository(e.db), repository.NewGormFollowRepository(e.db), e.invalidator(), e.opts)
}

// cachedFeed reads userID's feed of type feedType once and waits for it to
// land in the cache.
func cachedFeed(t *testing.T, e *testEnv, feed FeedService, userID, feedType string) string {
	t.Helper()
	if _, err := feed.GetFeed(context.Background(), userID, domain.FeedQuery{Type: feedType}); err != nil {
		t.Fatalf("GetFeed %s: %v", userID, err)
	}
	key := cache.FeedKey(userID, feedType, defaultLimit, 0, "", "")
	waitForKey(t, e, key)
	return key
}

func TestCreatePost_ReachesFollowerFeeds(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	content := newContent(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "friend", "Friend", "", "")
	testutil.SeedUser(t, e.db, "stranger", "Stranger", "", "")
	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	mine := cachedFeed(t, e, feed, "me", domain.FeedPosts)
	theirs := cachedFeed(t, e, feed, "friend", domain.FeedPosts)
	other := cachedFeed(t, e, feed, "stranger", domain.FeedPosts)

	post, err := content.CreatePost(ctx, "friend", domain.PostInput{
		Content:  "  new wheels  ",
		Hashtags: []string{"#JDM", "jdm", " Drift "},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.ID == "" || post.Content != "new wheels" || !reflect.DeepEqual(post.Hashtags, []string{"drift", "jdm"}) {
		t.Errorf("unexpected post %+v", post)
	}

	if e.mr.Exists(mine) || e.mr.Exists(theirs) {
		t.Error("expected the author's and follower's feeds to be dropped")
	}
	if !e.mr.Exists(other) {
		t.Error("expected an unrelated feed to survive")
	}

	got, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedPosts, Hashtag: "jdm"})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if len(got.Posts) != 1 || got.Posts[0].ID != post.ID {
		t.Errorf("expected the new post in the follower's feed, got %+v", got.Posts)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	e := newTestEnv(t)
	content := newContent(e)
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		input  domain.PostInput
	}{
		{"no author", "", domain.PostInput{Content: "hi"}},
		{"blank content", "u", domain.PostInput{Content: "   "}},
		{"too long", "u", domain.PostInput{Content: strings.Repeat("a", maxPostLength+1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := content.CreatePost(ctx, tc.userID, tc.input); !errors.Is(err, ErrInvalidOperation) {
				t.Errorf("expected ErrInvalidOperation, got %v", err)
			}
		})
	}
}

func TestCreateRoute(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	content := newContent(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "friend", "Friend", "", "")
	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	key := cachedFeed(t, e, feed, "me", domain.FeedRoutes)

	private := false
	if _, err := content.CreateRoute(ctx, "friend", domain.RouteInput{Name: "Secret", IsPublic: &private}); err != nil {
		t.Fatalf("CreateRoute private: %v", err)
	}
	if !e.mr.Exists(key) {
		t.Error("a private route should leave feeds cached")
	}

	route, err := content.CreateRoute(ctx, "friend", domain.RouteInput{Name: " Canyon loop ", DistanceKM: 42.5})
	if err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if route.Name != "Canyon loop" || route.Difficulty != defaultDifficulty {
		t.Errorf("unexpected route %+v", route)
	}
	if e.mr.Exists(key) {
		t.Error("expected the follower's feed to be dropped by a public route")
	}

	got, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedRoutes})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if len(got.Routes) != 1 || got.Routes[0].ID != route.ID {
		t.Errorf("expected only the public route, got %+v", got.Routes)
	}

	for _, in := range []domain.RouteInput{
		{Name: ""},
		{Name: "x", DistanceKM: -1},
		{Name: "x", Difficulty: "insane"},
	} {
		if _, err := content.CreateRoute(ctx, "friend", in); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("CreateRoute(%+v): expected ErrInvalidOperation, got %v", in, err)
		}
	}
}

func TestCreateEvent_ReachesFollowerFeeds(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	events := NewEventService(repository.NewGormEventRepository(e.db), repository.NewGormFollowRepository(e.db), e.cache, e.invalidator(), e.opts)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "org", "Organizer", "", "")
	if err := graph.FollowUser(ctx, "me", "org"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	key := cachedFeed(t, e, feed, "me", domain.FeedEvents)

	ev, err := events.CreateEvent(ctx, "org", domain.EventInput{Title: "Sunday cruise", StartDate: time.Now().Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if e.mr.Exists(key) {
		t.Error("expected the follower's feed to be dropped by a new public event")
	}

	got, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedEvents})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if len(got.Events) != 1 || got.Events[0].ID != ev.ID {
		t.Errorf("expected the new event in the feed, got %+v", got.Events)
	}
}
