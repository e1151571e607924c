// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
)

// NewDB opens a migrated file-backed SQLite database that lives for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 8,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewRedis starts an in-memory Redis and returns a client connected to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// SeedUser inserts a user with the given car.
func SeedUser(t *testing.T, db *gorm.DB, id, name, carMake, carModel string) *domain.UserModel {
	t.Helper()

	u := &domain.UserModel{ID: id, DisplayName: name, CarMake: carMake, CarModel: carModel}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

// SeedEvent inserts a public event starting in a week.
func SeedEvent(t *testing.T, db *gorm.DB, id, organizerID string, maxParticipants *int, requiresApproval bool) *domain.EventModel {
	t.Helper()

	e := &domain.EventModel{
		ID:               id,
		OrganizerID:      organizerID,
		Title:            "Meet " + id,
		Status:           "published",
		IsPublic:         true,
		StartDate:        time.Now().UTC().Add(7 * 24 * time.Hour),
		MaxParticipants:  maxParticipants,
		RequiresApproval: requiresApproval,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
	return e
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
