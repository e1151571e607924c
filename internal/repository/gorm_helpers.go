package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
)

const (
	userCountersSQL = `UPDATE users SET
	following_count = (SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id),
	follower_count = (SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id),
	updated_at = ?
WHERE id IN ?`

	userDriftSQL = `follower_count <> (SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id)
	OR following_count <> (SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id)`

	eventParticipantsSQL = `UPDATE events SET
	current_participants = (SELECT COUNT(*) FROM event_registrations
		WHERE event_registrations.event_id = events.id AND event_registrations.status = ?),
	updated_at = ?
WHERE id IN ?`

	eventDriftSQL = `current_participants <> (SELECT COUNT(*) FROM event_registrations
	WHERE event_registrations.event_id = events.id AND event_registrations.status = ?)`
)

// forUpdate adds a row lock to the next query. SQLite has no row locks;
// its transactions take the database write lock at BEGIN instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsSQLite(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// refreshUserCounters recomputes follower/following counts from the edge table.
func refreshUserCounters(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Exec(userCountersSQL, time.Now().UTC(), ids).Error
}

// refreshEventParticipants recomputes current_participants from registered rows.
func refreshEventParticipants(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Exec(eventParticipantsSQL, string(domain.StatusRegistered), time.Now().UTC(), ids).Error
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// With TranslateError, GORM wraps these as gorm.ErrDuplicatedKey; the
// string checks cover drivers that do not translate.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry")
}

// isNotFound checks if the error is a "record not found" error.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func applyPage(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
