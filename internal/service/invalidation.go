package service

import (
	"context"
	"encoding/json"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/consumer"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// Invalidator deletes cache entries after a committed change. Calls block
// until Redis answers; failures are logged and swallowed because the store
// already holds the truth and entries expire on their own.
type Invalidator struct {
	cache cache.Cache
}

func NewInvalidator(c cache.Cache) *Invalidator {
	return &Invalidator{cache: c}
}

// Follow drops everything an edge followerID -> followingID feeds into.
func (i *Invalidator) Follow(ctx context.Context, followerID, followingID string) {
	i.run(ctx,
		[]string{cache.UserKey(followerID), cache.UserKey(followingID)},
		[]string{
			cache.FollowListPattern(cache.KindFollowers, followingID),
			cache.FollowListPattern(cache.KindFollowing, followerID),
			cache.FollowListPattern(cache.KindSuggestions, followerID),
			cache.FeedPattern(followerID),
			cache.FeedPattern(followingID),
		},
	)
}

func (i *Invalidator) Event(ctx context.Context, eventID string) {
	i.run(ctx, []string{cache.EventKey(eventID)}, nil)
}

// Users drops the profile, every follow list and every feed of each user.
func (i *Invalidator) Users(ctx context.Context, userIDs ...string) {
	var keys, patterns []string
	for _, id := range userIDs {
		keys = append(keys, cache.UserKey(id))
		patterns = append(patterns,
			cache.FollowListPattern(cache.KindFollowers, id),
			cache.FollowListPattern(cache.KindFollowing, id),
			cache.FeedPattern(id),
		)
	}
	i.run(ctx, keys, patterns)
}

// Feeds drops every cached feed of each user.
func (i *Invalidator) Feeds(ctx context.Context, userIDs ...string) {
	patterns := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		patterns = append(patterns, cache.FeedPattern(id))
	}
	i.run(ctx, nil, patterns)
}

func (i *Invalidator) run(ctx context.Context, keys, patterns []string) {
	l := pkglog.Ctx(ctx)

	invCtx, cancel := afterCommit(ctx)
	defer cancel()

	if err := i.cache.Delete(invCtx, keys...); err != nil {
		l.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
	if err := i.cache.DeletePattern(invCtx, patterns...); err != nil {
		l.Warn().Err(err).Strs("patterns", patterns).Msg("cache pattern invalidation failed")
	}
}

// cdcHandler maps Debezium row changes to the same invalidations the
// services perform, covering writes made by other processes.
type cdcHandler struct {
	invalidator *Invalidator
}

// NewCDCHandler creates the handler fed by the CDC consumer.
func NewCDCHandler(invalidator *Invalidator) CDCHandler {
	return &cdcHandler{invalidator: invalidator}
}

type cdcFollowRow struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

type cdcRegistrationRow struct {
	EventID string `json:"event_id"`
}

type cdcIDRow struct {
	ID string `json:"id"`
}

func (h *cdcHandler) HandleCDCEvent(ctx context.Context, event *consumer.DebeziumMessage) error {
	l := pkglog.Ctx(ctx)
	p := event.Payload

	if p.Op == consumer.OpSnapshot {
		return nil
	}

	for _, raw := range p.Rows() {
		switch p.Source.Table {
		case "follows":
			var row cdcFollowRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			h.invalidator.Follow(ctx, row.FollowerID, row.FollowingID)

		case "event_registrations":
			var row cdcRegistrationRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			h.invalidator.Event(ctx, row.EventID)

		case "events":
			var row cdcIDRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			h.invalidator.Event(ctx, row.ID)

		case "users":
			var row cdcIDRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			h.invalidator.Users(ctx, row.ID)

		default:
			l.Warn().Str("table", p.Source.Table).Msg("CDC event for unknown table, skipping")
			return nil
		}
	}

	return nil
}
