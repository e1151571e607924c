package repository

import (
	"context"
	"errors"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrFollowerNotFound     = errors.New("follower not found")
	ErrFolloweeNotFound     = errors.New("followee not found")
	ErrAlreadyFollowing     = errors.New("already following")
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("active registration already exists")
	ErrEventFull            = errors.New("event is full")
)

// UserRepository persists profiles.
type UserRepository interface {
	Create(ctx context.Context, user *domain.UserModel) error
	GetByID(ctx context.Context, id string) (*domain.UserModel, error)
}

// FollowRepository owns the follow edge table and the user counters derived
// from it. Every mutation refreshes the counters of both endpoints in the
// same transaction as the edge change.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID string) error
	// Unfollow reports whether an edge was removed.
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowers(ctx context.Context, userID string, limit, offset int) ([]domain.UserModel, int64, error)
	ListFollowing(ctx context.Context, userID string, limit, offset int) ([]domain.UserModel, int64, error)
	Suggest(ctx context.Context, userID string, limit, offset int) ([]Suggestion, int64, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// Suggestion is a candidate user with its car similarity score
// (3 make+model, 2 make, 1 none).
type Suggestion struct {
	domain.UserModel `gorm:"embedded"`
	CarSimilarity    int `gorm:"column:car_similarity"`
}

// EventRepository persists events.
type EventRepository interface {
	Create(ctx context.Context, event *domain.EventModel) error
	GetByID(ctx context.Context, id string) (*domain.EventModel, error)
}

// RegistrationRepository owns event_registrations and the participant
// counter of the owning event. Mutations lock the event row first.
type RegistrationRepository interface {
	Create(ctx context.Context, eventID, userID string, details domain.RegistrationDetails) (*domain.RegistrationModel, error)
	GetByID(ctx context.Context, id string) (*domain.RegistrationModel, error)
	Transition(ctx context.Context, id string, to domain.RegistrationStatus) (*Transition, error)
	List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.RegistrationModel, int64, error)
}

// Transition is the outcome of a status change.
type Transition struct {
	Registration *domain.RegistrationModel
	From         domain.RegistrationStatus
	Changed      bool
}

// ContentRepository stores posts and routes and reads feed content
// authored by a set of users.
type ContentRepository interface {
	CreatePost(ctx context.Context, post *domain.PostModel) error
	CreateRoute(ctx context.Context, route *domain.RouteModel) error
	RecentPosts(ctx context.Context, authorIDs []string, hashtag string, limit, offset int) ([]domain.PostModel, error)
	UpcomingEvents(ctx context.Context, organizerIDs []string, rallyType string, limit, offset int) ([]domain.EventModel, error)
	RecentRoutes(ctx context.Context, creatorIDs []string, limit, offset int) ([]domain.RouteModel, error)
}

// CounterRepository finds and repairs materialized counters that no longer
// match their source rows.
type CounterRepository interface {
	DriftedUsers(ctx context.Context, limit int) ([]string, error)
	DriftedEvents(ctx context.Context, limit int) ([]string, error)
	RefreshUsers(ctx context.Context, ids []string) error
	RefreshEvents(ctx context.Context, ids []string) error
}
