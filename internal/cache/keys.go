package cache

import (
	"fmt"
	"net/url"
)

// Follow list kinds.
const (
	KindFollowers   = "followers"
	KindFollowing   = "following"
	KindSuggestions = "suggestions"
)

// FollowListKey is the key of one page of a follow list.
func FollowListKey(kind, userID string, limit, offset int) string {
	return fmt.Sprintf("follow:%s:%s:%d:%d", kind, userID, limit, offset)
}

// FollowListPattern matches every page of one user's follow list.
func FollowListPattern(kind, userID string) string {
	return fmt.Sprintf("follow:%s:%s:*", kind, userID)
}

func EventKey(eventID string) string {
	return "event:" + eventID
}

func UserKey(userID string) string {
	return "user:" + userID
}

// FeedKey includes every query parameter so distinct feeds never share an entry.
func FeedKey(userID, feedType string, limit, offset int, rallyType, hashtag string) string {
	filters := url.Values{}
	if rallyType != "" {
		filters.Set("rally_type", rallyType)
	}
	if hashtag != "" {
		filters.Set("hashtag", hashtag)
	}
	return fmt.Sprintf("feed:%s:%s:%d:%d:%s", userID, feedType, limit, offset, filters.Encode())
}

// FeedPattern matches every cached feed of one user.
func FeedPattern(userID string) string {
	return fmt.Sprintf("feed:%s:*", userID)
}
