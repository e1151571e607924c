package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	"github.com/ncpierced1371/throttle-meet-backend/internal/service"
	"github.com/ncpierced1371/throttle-meet-backend/internal/testutil"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/jwt"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/pubsub"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pubsub.Event) error { return nil }

func (discardPublisher) Close() error { return nil }

type fakeStorage struct{}

func (fakeStorage) GetUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://uploads.example.test/" + key, nil
}

func (fakeStorage) GetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://uploads.example.test/" + key, nil
}

func (fakeStorage) Exists(context.Context, string) (bool, error) { return true, nil }

func (fakeStorage) Delete(context.Context, string) error { return nil }

type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *jwt.Manager
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.NewDB(t)
	_, client := testutil.NewRedis(t)
	c := cache.NewRedisCache(client)

	opts := service.Options{
		OpTimeout:   5 * time.Second,
		FollowTTL:   time.Minute,
		EventTTL:    time.Minute,
		ProfileTTL:  time.Minute,
		FeedTTL:     time.Minute,
		EventsTopic: "test.events",
	}
	inv := service.NewInvalidator(c)
	notifier := service.NewNotifier(discardPublisher{}, opts.EventsTopic)

	follows := repository.NewGormFollowRepository(db)
	events := repository.NewGormEventRepository(db)
	content := repository.NewGormContentRepository(db)
	graph := service.NewFollowGraphService(follows, c, inv, notifier, opts)

	svc := Services{
		Profiles:      service.NewProfileService(repository.NewGormUserRepository(db), c, opts),
		Graph:         graph,
		Events:        service.NewEventService(events, follows, c, inv, opts),
		Registrations: service.NewRegistrationService(repository.NewGormRegistrationRepository(db), inv, notifier, opts),
		Feed:          service.NewFeedService(graph, follows, content, c, opts),
		Content:       service.NewContentService(content, follows, inv, opts),
		Media:         service.NewMediaService(events, fakeStorage{}, time.Minute, opts),
	}

	tokens, err := jwt.NewManager("handler-secret", "throttlemeet", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	r := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(tokens), middleware.NewRateLimiter(client, 100, time.Minute)).RegisterRoutes(r)

	return &apiEnv{t: t, db: db, router: r, tokens: tokens}
}

func (e *apiEnv) token(userID string, roles ...string) string {
	e.t.Helper()
	tok, _, err := e.tokens.GenerateAccessToken(userID, "", roles)
	if err != nil {
		e.t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

// do sends a request with an optional bearer token and decodes the envelope.
func (e *apiEnv) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp response.Response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			e.t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func decodeData(t *testing.T, resp response.Response, dest interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

func TestHealth(t *testing.T) {
	e := newAPIEnv(t)
	w, _ := e.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestFollowFlow(t *testing.T) {
	e := newAPIEnv(t)
	alice, bob := e.token("alice"), e.token("bob")

	for _, u := range []struct{ tok, name string }{{alice, "Alice"}, {bob, "Bob"}} {
		if w, _ := e.do(http.MethodPost, "/api/v1/users", u.tok, domain.ProfileInput{DisplayName: u.name}); w.Code != http.StatusCreated {
			t.Fatalf("create profile %s: expected 201, got %d", u.name, w.Code)
		}
	}

	if w, _ := e.do(http.MethodPost, "/api/v1/users/bob/follow", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous follow: expected 401, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodPost, "/api/v1/users/bob/follow", alice, nil); w.Code != http.StatusCreated {
		t.Fatalf("follow: expected 201, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodPost, "/api/v1/users/bob/follow", alice, nil); w.Code != http.StatusConflict {
		t.Errorf("duplicate follow: expected 409, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodPost, "/api/v1/users/alice/follow", alice, nil); w.Code != http.StatusBadRequest {
		t.Errorf("self follow: expected 400, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodPost, "/api/v1/users/ghost/follow", alice, nil); w.Code != http.StatusNotFound {
		t.Errorf("follow missing user: expected 404, got %d", w.Code)
	}

	w, resp := e.do(http.MethodGet, "/api/v1/users/bob/followers", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list followers: expected 200, got %d", w.Code)
	}
	var users []domain.UserSummary
	decodeData(t, resp, &users)
	if resp.Meta == nil || resp.Meta.Total != 1 || resp.Meta.Limit != 20 || len(users) != 1 || users[0].ID != "alice" {
		t.Errorf("unexpected followers page %+v meta %+v", users, resp.Meta)
	}

	_, resp = e.do(http.MethodGet, "/api/v1/users/bob", "", nil)
	var profile domain.User
	decodeData(t, resp, &profile)
	if profile.FollowerCount != 1 {
		t.Errorf("expected follower_count 1, got %d", profile.FollowerCount)
	}

	if w, _ := e.do(http.MethodDelete, "/api/v1/users/bob/follow", alice, nil); w.Code != http.StatusNoContent {
		t.Errorf("unfollow: expected 204, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodDelete, "/api/v1/users/bob/follow", alice, nil); w.Code != http.StatusNoContent {
		t.Errorf("repeated unfollow: expected 204, got %d", w.Code)
	}

	if w, _ := e.do(http.MethodGet, "/api/v1/users/bob/following?limit=abc", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodGet, "/api/v1/users/me/suggestions", alice, nil); w.Code != http.StatusOK {
		t.Errorf("suggestions: expected 200, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodGet, "/api/v1/feed?type=social", alice, nil); w.Code != http.StatusOK {
		t.Errorf("feed: expected 200, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodGet, "/api/v1/feed?type=bogus", alice, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad feed type: expected 400, got %d", w.Code)
	}
}

func TestContentFlow(t *testing.T) {
	e := newAPIEnv(t)
	alice, bob := e.token("alice"), e.token("bob")

	for _, u := range []struct{ tok, name string }{{alice, "Alice"}, {bob, "Bob"}} {
		if w, _ := e.do(http.MethodPost, "/api/v1/users", u.tok, domain.ProfileInput{DisplayName: u.name}); w.Code != http.StatusCreated {
			t.Fatalf("create profile %s: expected 201, got %d", u.name, w.Code)
		}
	}
	if w, _ := e.do(http.MethodPost, "/api/v1/users/bob/follow", alice, nil); w.Code != http.StatusCreated {
		t.Fatalf("follow: expected 201, got %d", w.Code)
	}

	if w, _ := e.do(http.MethodPost, "/api/v1/posts", "", domain.PostInput{Content: "hi"}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous post: expected 401, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodPost, "/api/v1/posts", bob, domain.PostInput{Content: " "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank post: expected 400, got %d", w.Code)
	}
	w, resp := e.do(http.MethodPost, "/api/v1/posts", bob, domain.PostInput{Content: "track day", Hashtags: []string{"#Track"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var post domain.Post
	decodeData(t, resp, &post)
	if post.UserID != "bob" || len(post.Hashtags) != 1 || post.Hashtags[0] != "track" {
		t.Errorf("unexpected post %+v", post)
	}

	w, resp = e.do(http.MethodPost, "/api/v1/routes", bob, domain.RouteInput{Name: "Canyon loop", DistanceKM: 30})
	if w.Code != http.StatusCreated {
		t.Fatalf("create route: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var route domain.Route
	decodeData(t, resp, &route)

	w, resp = e.do(http.MethodGet, "/api/v1/feed?type=content", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("feed: expected 200, got %d", w.Code)
	}
	var feed domain.Feed
	decodeData(t, resp, &feed)
	if len(feed.Posts) != 1 || feed.Posts[0].ID != post.ID {
		t.Errorf("expected bob's post in alice's feed, got %+v", feed.Posts)
	}
	if len(feed.Routes) != 1 || feed.Routes[0].ID != route.ID {
		t.Errorf("expected bob's route in alice's feed, got %+v", feed.Routes)
	}
}

func TestRegistrationFlow(t *testing.T) {
	e := newAPIEnv(t)
	org, x, y, admin := e.token("org"), e.token("x"), e.token("y"), e.token("root", middleware.RoleAdmin)

	capacity := 1
	w, resp := e.do(http.MethodPost, "/api/v1/events", org, domain.EventInput{
		Title:           "Track day",
		StartDate:       time.Now().Add(48 * time.Hour),
		MaxParticipants: &capacity,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var event domain.Event
	decodeData(t, resp, &event)
	base := "/api/v1/events/" + event.ID

	w, resp = e.do(http.MethodPost, base+"/registrations", x, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register x: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var regX domain.Registration
	decodeData(t, resp, &regX)
	if regX.Status != domain.StatusRegistered {
		t.Fatalf("expected x registered, got %s", regX.Status)
	}

	_, resp = e.do(http.MethodPost, base+"/registrations", y, domain.RegistrationDetails{
		CarDetails: &domain.CarDetails{Make: "Honda", Model: "S2000"},
	})
	var regY domain.Registration
	decodeData(t, resp, &regY)
	if regY.Status != domain.StatusWaitlisted {
		t.Fatalf("expected y waitlisted, got %s", regY.Status)
	}

	if w, _ := e.do(http.MethodPost, base+"/registrations", x, nil); w.Code != http.StatusConflict {
		t.Errorf("duplicate registration: expected 409, got %d", w.Code)
	}

	// authorization
	if w, _ := e.do(http.MethodGet, base+"/registrations", x, nil); w.Code != http.StatusForbidden {
		t.Errorf("participant listing: expected 403, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodGet, "/api/v1/registrations/"+regY.ID, x, nil); w.Code != http.StatusForbidden {
		t.Errorf("reading another's registration: expected 403, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodGet, "/api/v1/registrations/"+regY.ID, y, nil); w.Code != http.StatusOK {
		t.Errorf("owner read: expected 200, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodPatch, "/api/v1/registrations/"+regY.ID+"/status", y, map[string]string{"status": "registered"}); w.Code != http.StatusForbidden {
		t.Errorf("owner promoting self: expected 403, got %d", w.Code)
	}

	w, resp = e.do(http.MethodGet, base+"/registrations", org, nil)
	if w.Code != http.StatusOK || resp.Meta == nil || resp.Meta.Total != 2 || resp.Meta.Limit != 50 {
		t.Errorf("organizer list: got %d meta %+v", w.Code, resp.Meta)
	}

	if w, _ := e.do(http.MethodPatch, "/api/v1/registrations/"+regY.ID+"/status", org, map[string]string{"status": "registered"}); w.Code != http.StatusConflict {
		t.Errorf("promotion while full: expected 409, got %d", w.Code)
	}
	if w, _ := e.do(http.MethodDelete, "/api/v1/registrations/"+regX.ID, x, nil); w.Code != http.StatusNoContent {
		t.Errorf("cancel: expected 204, got %d", w.Code)
	}
	w, resp = e.do(http.MethodPatch, "/api/v1/registrations/"+regY.ID+"/status", admin, map[string]string{"status": "registered"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin promote: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if w, _ := e.do(http.MethodPatch, "/api/v1/registrations/"+regY.ID+"/status", org, map[string]string{"status": "approved"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown status: expected 400, got %d", w.Code)
	}

	_, resp = e.do(http.MethodGet, base, "", nil)
	var after domain.Event
	decodeData(t, resp, &after)
	if after.CurrentParticipants != 1 {
		t.Errorf("expected 1 participant, got %d", after.CurrentParticipants)
	}

	if w, _ := e.do(http.MethodGet, "/api/v1/registrations/missing", org, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing registration: expected 404, got %d", w.Code)
	}
}

func TestPresignCover(t *testing.T) {
	e := newAPIEnv(t)
	testutil.SeedEvent(t, e.db, "E", "org", nil, false)

	body := map[string]string{"content_type": "image/jpeg"}
	if w, _ := e.do(http.MethodPost, "/api/v1/events/E/cover/presign", e.token("stranger"), body); w.Code != http.StatusForbidden {
		t.Errorf("non-organizer: expected 403, got %d", w.Code)
	}

	w, resp := e.do(http.MethodPost, "/api/v1/events/E/cover/presign", e.token("org"), body)
	if w.Code != http.StatusOK {
		t.Fatalf("organizer: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var target domain.UploadTarget
	decodeData(t, resp, &target)
	if target.UploadURL == "" || target.ObjectKey == "" {
		t.Errorf("unexpected upload target %+v", target)
	}

	if w, _ := e.do(http.MethodPost, "/api/v1/events/E/cover/presign", e.token("org"), map[string]string{"content_type": "text/html"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad content type: expected 400, got %d", w.Code)
	}
}

type unavailableGraph struct {
	service.FollowGraphService
}

func (unavailableGraph) FollowUser(context.Context, string, string) error {
	return service.ErrTransient
}

func TestTransientErrorReturns503(t *testing.T) {
	tokens, err := jwt.NewManager("handler-secret", "throttlemeet", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	r := gin.New()
	NewHandler(Services{Graph: unavailableGraph{}}, middleware.NewAuthMiddleware(tokens), nil).RegisterRoutes(r)

	tok, _, err := tokens.GenerateAccessToken("a", "", nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/b/follow", nil)
	req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}
