package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	"github.com/ncpierced1371/throttle-meet-backend/internal/testutil"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
)

func newFeed(e *testEnv) (FeedService, FollowGraphService) {
	follows := repository.NewGormFollowRepository(e.db)
	graph := NewFollowGraphService(follows, e.cache, e.invalidator(), e.notifier(), e.opts)
	return NewFeedService(graph, follows, repository.NewGormContentRepository(e.db), e.cache, e.opts), graph
}

func seedFeedContent(t *testing.T, e *testEnv) {
	t.Helper()

	now := time.Now().UTC()
	posts := []domain.PostModel{
		{ID: "p-me", UserID: "me", Content: "own post", Hashtags: database.StringArray{"track"}, CreatedAt: now.Add(-3 * time.Minute)},
		{ID: "p-friend-1", UserID: "friend", Content: "track day", Hashtags: database.StringArray{"track", "jdm"}, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "p-friend-2", UserID: "friend", Content: "coffee", Hashtags: database.StringArray{"coffee"}, CreatedAt: now.Add(-time.Minute)},
		{ID: "p-stranger", UserID: "stranger", Content: "hidden", Hashtags: database.StringArray{"track"}, CreatedAt: now},
	}
	if err := e.db.Create(&posts).Error; err != nil {
		t.Fatalf("seed posts: %v", err)
	}

	events := []domain.EventModel{
		{ID: "ev-drift", OrganizerID: "friend", Title: "Drift night", RallyType: "drift", Status: "published", IsPublic: true, StartDate: now.Add(48 * time.Hour)},
		{ID: "ev-cruise", OrganizerID: "friend", Title: "Sunday cruise", RallyType: "cruise", Status: "published", IsPublic: true, StartDate: now.Add(24 * time.Hour)},
		{ID: "ev-past", OrganizerID: "friend", Title: "Last week", RallyType: "cruise", Status: "published", IsPublic: true, StartDate: now.Add(-24 * time.Hour)},
		{ID: "ev-private", OrganizerID: "friend", Title: "Invite only", RallyType: "cruise", Status: "published", IsPublic: false, StartDate: now.Add(24 * time.Hour)},
		{ID: "ev-stranger", OrganizerID: "stranger", Title: "Other", RallyType: "cruise", Status: "published", IsPublic: true, StartDate: now.Add(24 * time.Hour)},
	}
	if err := e.db.Create(&events).Error; err != nil {
		t.Fatalf("seed events: %v", err)
	}

	routes := []domain.RouteModel{
		{ID: "r-public", CreatorID: "friend", Name: "Canyon loop", DistanceKM: 42.5, IsPublic: true},
		{ID: "r-private", CreatorID: "friend", Name: "Secret road", IsPublic: false},
	}
	if err := e.db.Create(&routes).Error; err != nil {
		t.Fatalf("seed routes: %v", err)
	}
}

func TestGetFeed_Content(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "Subaru", "WRX")
	testutil.SeedUser(t, e.db, "friend", "Friend", "Subaru", "BRZ")
	testutil.SeedUser(t, e.db, "stranger", "Stranger", "Ford", "Focus")
	seedFeedContent(t, e)

	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	got, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedContent})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if got.Followers != nil || got.Following != nil || got.Suggestions != nil {
		t.Error("content feed should not carry social sections")
	}

	wantPosts := []string{"p-friend-2", "p-friend-1", "p-me"}
	if len(got.Posts) != len(wantPosts) {
		t.Fatalf("expected %d posts, got %d", len(wantPosts), len(got.Posts))
	}
	for i, id := range wantPosts {
		if got.Posts[i].ID != id {
			t.Errorf("post %d: expected %s, got %s", i, id, got.Posts[i].ID)
		}
	}

	if len(got.Events) != 2 || got.Events[0].ID != "ev-cruise" || got.Events[1].ID != "ev-drift" {
		t.Errorf("expected upcoming public events [ev-cruise ev-drift], got %+v", got.Events)
	}
	if len(got.Routes) != 1 || got.Routes[0].ID != "r-public" {
		t.Errorf("expected only the public route, got %+v", got.Routes)
	}
}

func TestGetFeed_Filters(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "friend", "Friend", "", "")
	testutil.SeedUser(t, e.db, "stranger", "Stranger", "", "")
	seedFeedContent(t, e)
	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	posts, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedPosts, Hashtag: "#JDM"})
	if err != nil {
		t.Fatalf("GetFeed posts: %v", err)
	}
	if len(posts.Posts) != 1 || posts.Posts[0].ID != "p-friend-1" {
		t.Errorf("expected only the #jdm post, got %+v", posts.Posts)
	}
	if posts.Events != nil || posts.Routes != nil {
		t.Error("posts feed should only carry posts")
	}

	events, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedEvents, RallyType: "drift"})
	if err != nil {
		t.Fatalf("GetFeed events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].ID != "ev-drift" {
		t.Errorf("expected only the drift event, got %+v", events.Events)
	}
}

func TestGetFeed_Social(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "Mazda", "MX-5")
	testutil.SeedUser(t, e.db, "friend", "Friend", "Mazda", "RX-7")
	testutil.SeedUser(t, e.db, "fan", "Fan", "", "")
	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}
	if err := graph.FollowUser(ctx, "fan", "me"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	got, err := feed.GetFeed(ctx, "me", domain.FeedQuery{Type: domain.FeedSocial, Limit: 500})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if got.Limit != maxLimit {
		t.Errorf("expected limit clamped to %d, got %d", maxLimit, got.Limit)
	}
	if got.Followers == nil || got.Followers.Total != 1 || got.Followers.Users[0].ID != "fan" {
		t.Errorf("unexpected followers section %+v", got.Followers)
	}
	if got.Following == nil || got.Following.Total != 1 || got.Following.Users[0].ID != "friend" {
		t.Errorf("unexpected following section %+v", got.Following)
	}
	if got.Suggestions == nil {
		t.Error("expected a suggestions section")
	}
	if got.Posts != nil {
		t.Error("social feed should not carry posts")
	}
}

func TestGetFeed_CachedUntilFollowChange(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "friend", "Friend", "", "")

	q := domain.FeedQuery{Type: domain.FeedFollowing}
	first, err := feed.GetFeed(ctx, "me", q)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if first.Following.Total != 0 {
		t.Fatalf("expected empty following, got %d", first.Following.Total)
	}

	key := cache.FeedKey("me", domain.FeedFollowing, defaultLimit, 0, "", "")
	waitForKey(t, e, key)

	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}
	if e.mr.Exists(key) {
		t.Error("expected feed cache entry to be dropped after follow")
	}

	second, err := feed.GetFeed(ctx, "me", q)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if second.Following.Total != 1 {
		t.Errorf("expected fresh following total 1, got %d", second.Following.Total)
	}
}

func TestGetFeed_FolloweeFeedDroppedOnFollow(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "friend", "Friend", "", "")

	q := domain.FeedQuery{Type: domain.FeedFollowers}
	first, err := feed.GetFeed(ctx, "friend", q)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if first.Followers.Total != 0 {
		t.Fatalf("expected no followers, got %d", first.Followers.Total)
	}

	key := cache.FeedKey("friend", domain.FeedFollowers, defaultLimit, 0, "", "")
	waitForKey(t, e, key)

	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}
	if e.mr.Exists(key) {
		t.Error("expected the followee's feed entry to be dropped after follow")
	}

	second, err := feed.GetFeed(ctx, "friend", q)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if second.Followers.Total != 1 || second.Followers.Users[0].ID != "me" {
		t.Errorf("expected fresh followers [me], got %+v", second.Followers)
	}
}

func TestGetFeed_EventsOmitParticipantCount(t *testing.T) {
	e := newTestEnv(t)
	feed, graph := newFeed(e)
	regs := newRegistrations(e)
	ctx := context.Background()

	testutil.SeedUser(t, e.db, "me", "Me", "", "")
	testutil.SeedUser(t, e.db, "friend", "Friend", "", "")
	seedFeedContent(t, e)
	if err := graph.FollowUser(ctx, "me", "friend"); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}

	q := domain.FeedQuery{Type: domain.FeedEvents}
	before, err := feed.GetFeed(ctx, "me", q)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	waitForKey(t, e, cache.FeedKey("me", domain.FeedEvents, defaultLimit, 0, "", ""))

	if _, err := regs.CreateRegistration(ctx, "ev-cruise", "me", domain.RegistrationDetails{}); err != nil {
		t.Fatalf("CreateRegistration: %v", err)
	}

	after, err := feed.GetFeed(ctx, "me", q)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if !reflect.DeepEqual(before.Events, after.Events) {
		t.Errorf("cached event summaries should not change with registrations: %+v vs %+v", before.Events, after.Events)
	}

	raw, err := json.Marshal(after)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	if strings.Contains(string(raw), "current_participants") {
		t.Errorf("feed event summaries should not carry a participant count: %s", raw)
	}
}

func TestGetFeed_InvalidType(t *testing.T) {
	e := newTestEnv(t)
	feed, _ := newFeed(e)

	if _, err := feed.GetFeed(context.Background(), "me", domain.FeedQuery{Type: "videos"}); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}
}

// waitForKey polls until an asynchronous cache write lands.
func waitForKey(t *testing.T, e *testEnv, key string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !e.mr.Exists(key) {
		if time.Now().After(deadline) {
			t.Fatalf("cache key %s never written", key)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
