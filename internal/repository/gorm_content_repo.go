package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

// GormContentRepository implements ContentRepository using GORM.
type GormContentRepository struct {
	db *gorm.DB
}

// NewGormContentRepository creates a new GORM-backed content repository.
func NewGormContentRepository(db *gorm.DB) *GormContentRepository {
	return &GormContentRepository{db: db}
}

func (r *GormContentRepository) CreatePost(ctx context.Context, post *domain.PostModel) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *GormContentRepository) CreateRoute(ctx context.Context, route *domain.RouteModel) error {
	return r.db.WithContext(ctx).Create(route).Error
}

// RecentPosts returns posts by authorIDs, newest first. hashtag, when set,
// must be one of the post's tags.
func (r *GormContentRepository) RecentPosts(ctx context.Context, authorIDs []string, hashtag string, limit, offset int) ([]domain.PostModel, error) {
	posts := []domain.PostModel{}
	if len(authorIDs) == 0 {
		return posts, nil
	}

	q := r.db.WithContext(ctx).Where("user_id IN ?", authorIDs)
	if tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hashtag), "#")); tag != "" {
		// hashtags are stored as a normalized JSON array
		q = q.Where("hashtags LIKE ?", `%"`+tag+`"%`)
	}
	err := applyPage(q.Order("created_at DESC").Order("id DESC"), limit, offset).Find(&posts).Error
	return posts, err
}

// UpcomingEvents returns public events organized by organizerIDs that have
// not started yet, soonest first.
func (r *GormContentRepository) UpcomingEvents(ctx context.Context, organizerIDs []string, rallyType string, limit, offset int) ([]domain.EventModel, error) {
	events := []domain.EventModel{}
	if len(organizerIDs) == 0 {
		return events, nil
	}

	q := r.db.WithContext(ctx).
		Where("organizer_id IN ?", organizerIDs).
		Where("is_public = ?", true).
		Where("start_date >= ?", time.Now().UTC())
	if rallyType != "" {
		q = q.Where("rally_type = ?", rallyType)
	}
	err := applyPage(q.Order("start_date ASC").Order("id ASC"), limit, offset).Find(&events).Error
	return events, err
}

// RecentRoutes returns public routes by creatorIDs, newest first.
func (r *GormContentRepository) RecentRoutes(ctx context.Context, creatorIDs []string, limit, offset int) ([]domain.RouteModel, error) {
	routes := []domain.RouteModel{}
	if len(creatorIDs) == 0 {
		return routes, nil
	}

	q := r.db.WithContext(ctx).
		Where("creator_id IN ?", creatorIDs).
		Where("is_public = ?", true)
	err := applyPage(q.Order("created_at DESC").Order("id DESC"), limit, offset).Find(&routes).Error
	return routes, err
}

// Ensure interface is satisfied at compile time.
var _ ContentRepository = (*GormContentRepository)(nil)
