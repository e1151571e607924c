package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

// GormCounterRepository implements CounterRepository using GORM.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GORM-backed counter repository.
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// DriftedUsers returns up to limit users whose counters differ from the edge table.
func (r *GormCounterRepository) DriftedUsers(ctx context.Context, limit int) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where(userDriftSQL).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// DriftedEvents returns up to limit events whose participant counter differs
// from their registered rows.
func (r *GormCounterRepository) DriftedEvents(ctx context.Context, limit int) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&domain.EventModel{}).
		Where(eventDriftSQL, string(domain.StatusRegistered)).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *GormCounterRepository) RefreshUsers(ctx context.Context, ids []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return refreshUserCounters(tx, ids)
	})
}

func (r *GormCounterRepository) RefreshEvents(ctx context.Context, ids []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return refreshEventParticipants(tx, ids)
	})
}

// Ensure interface is satisfied at compile time.
var _ CounterRepository = (*GormCounterRepository)(nil)
