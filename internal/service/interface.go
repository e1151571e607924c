package service

import (
	"context"
	"time"

	"github.com/ncpierced1371/throttle-meet-backend/internal/consumer"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

// FollowGraphService maintains follow edges and the counters derived from them.
type FollowGraphService interface {
	FollowUser(ctx context.Context, followerID, followingID string) error
	UnfollowUser(ctx context.Context, followerID, followingID string) error
	ListFollowers(ctx context.Context, userID string, limit, offset int) (*domain.UserPage, error)
	ListFollowing(ctx context.Context, userID string, limit, offset int) (*domain.UserPage, error)
	SuggestUsers(ctx context.Context, userID string, limit, offset int) (*domain.UserPage, error)
}

// RegistrationService keeps event participant counts in step with
// registration rows.
type RegistrationService interface {
	CreateRegistration(ctx context.Context, eventID, userID string, details domain.RegistrationDetails) (*domain.Registration, error)
	UpdateRegistrationStatus(ctx context.Context, registrationID, newStatus string) (*domain.Registration, error)
	CancelRegistration(ctx context.Context, registrationID string) error
	GetRegistration(ctx context.Context, registrationID string) (*domain.Registration, error)
	ListRegistrations(ctx context.Context, filter domain.RegistrationFilter) (*domain.RegistrationPage, error)
}

// ContentService publishes posts and routes into followers' feeds.
type ContentService interface {
	CreatePost(ctx context.Context, userID string, input domain.PostInput) (*domain.Post, error)
	CreateRoute(ctx context.Context, userID string, input domain.RouteInput) (*domain.Route, error)
}

type ProfileService interface {
	CreateProfile(ctx context.Context, userID string, input domain.ProfileInput) (*domain.User, error)
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
}

type EventService interface {
	CreateEvent(ctx context.Context, organizerID string, input domain.EventInput) (*domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)
}

// FeedService assembles read-only feeds. It never mutates.
type FeedService interface {
	GetFeed(ctx context.Context, userID string, query domain.FeedQuery) (*domain.Feed, error)
}

type MediaService interface {
	PresignEventCover(ctx context.Context, eventID, contentType string) (*domain.UploadTarget, error)
}

// CDCHandler turns row changes made outside this process into cache deletes.
type CDCHandler interface {
	HandleCDCEvent(ctx context.Context, event *consumer.DebeziumMessage) error
}

// Options are the tunables shared by the services.
type Options struct {
	// OpTimeout bounds every store call. Exceeding it aborts the
	// transaction and surfaces ErrTransient.
	OpTimeout   time.Duration
	FollowTTL   time.Duration
	EventTTL    time.Duration
	ProfileTTL  time.Duration
	FeedTTL     time.Duration
	EventsTopic string
}

const (
	defaultOpTimeout = 5 * time.Second
	// postCommitTimeout bounds invalidation and publishing after a commit.
	postCommitTimeout = 2 * time.Second

	defaultLimit             = 20
	maxLimit                 = 100
	defaultRegistrationLimit = 50
)

func (o Options) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := o.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// afterCommit returns a context that outlives a cancelled request so work
// owed for a committed change still runs.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
