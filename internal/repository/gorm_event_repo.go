package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

// GormEventRepository implements EventRepository using GORM.
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new GORM-backed event repository.
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// Create inserts an event with an empty participant counter.
func (r *GormEventRepository) Create(ctx context.Context, event *domain.EventModel) error {
	event.CurrentParticipants = 0
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) GetByID(ctx context.Context, id string) (*domain.EventModel, error) {
	var event domain.EventModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&event).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// Ensure interface is satisfied at compile time.
var _ EventRepository = (*GormEventRepository)(nil)
