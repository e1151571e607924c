package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Follow inserts the edge followerID -> followingID and refreshes both users'
// counters in one transaction. Both user rows are locked in id order so two
// users following each other concurrently cannot deadlock.
func (r *GormFollowRepository) Follow(ctx context.Context, followerID, followingID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []string{followerID, followingID}
		if err := lockUsers(tx, ids, ErrFollowerNotFound, ErrFolloweeNotFound); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&domain.FollowModel{}).
			Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyFollowing
		}

		model := domain.FollowModel{
			FollowerID:  followerID,
			FollowingID: followingID,
		}
		if err := tx.Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyFollowing
			}
			return err
		}

		return refreshUserCounters(tx, ids)
	})
}

// Unfollow removes the edge if present. A missing edge or a missing followee
// is not an error; a missing follower is.
func (r *GormFollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []string{followerID, followingID}
		if err := lockUsers(tx, ids, ErrFollowerNotFound, nil); err != nil {
			return err
		}

		result := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Delete(&domain.FollowModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		return refreshUserCounters(tx, ids)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// lockUsers locks the given user rows. A missing ids[0] returns errFirst,
// a missing ids[1] returns errSecond unless it is nil.
func lockUsers(tx *gorm.DB, ids []string, errFirst, errSecond error) error {
	var rows []domain.UserModel
	if err := forUpdate(tx).Select("id").
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error; err != nil {
		return err
	}

	found := make(map[string]bool, len(rows))
	for _, u := range rows {
		found[u.ID] = true
	}
	if !found[ids[0]] {
		return errFirst
	}
	if errSecond != nil && !found[ids[1]] {
		return errSecond
	}
	return nil
}

// ListFollowers returns users that follow userID, ordered by display name.
func (r *GormFollowRepository) ListFollowers(ctx context.Context, userID string, limit, offset int) ([]domain.UserModel, int64, error) {
	return r.listEdges(ctx, userID, "follows.follower_id = users.id", "follows.following_id = ?", limit, offset)
}

// ListFollowing returns users that userID follows, ordered by display name.
func (r *GormFollowRepository) ListFollowing(ctx context.Context, userID string, limit, offset int) ([]domain.UserModel, int64, error) {
	return r.listEdges(ctx, userID, "follows.following_id = users.id", "follows.follower_id = ?", limit, offset)
}

func (r *GormFollowRepository) listEdges(ctx context.Context, userID, joinOn, where string, limit, offset int) ([]domain.UserModel, int64, error) {
	if err := r.ensureUser(ctx, userID); err != nil {
		return nil, 0, err
	}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&domain.UserModel{}).
			Joins("JOIN follows ON "+joinOn).
			Where(where, userID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []domain.UserModel{}
	if total == 0 {
		return users, 0, nil
	}
	err := applyPage(base().Select("users.*").
		Order("users.display_name ASC").
		Order("users.id ASC"), limit, offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Suggest ranks users the requester does not follow yet. Users without any
// followers are never suggested.
func (r *GormFollowRepository) Suggest(ctx context.Context, userID string, limit, offset int) ([]Suggestion, int64, error) {
	var self domain.UserModel
	if err := r.db.WithContext(ctx).Select("id", "car_make", "car_model").
		Where("id = ?", userID).Take(&self).Error; err != nil {
		if isNotFound(err) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, err
	}

	base := func() *gorm.DB {
		followed := r.db.Model(&domain.FollowModel{}).
			Select("following_id").
			Where("follower_id = ?", userID)
		return r.db.WithContext(ctx).
			Model(&domain.UserModel{}).
			Where("users.id <> ?", userID).
			Where("users.follower_count > 0").
			Where("users.id NOT IN (?)", followed)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []Suggestion{}
	if total == 0 {
		return rows, 0, nil
	}

	score, args := similarityExpr(self.CarMake, self.CarModel)
	err := applyPage(base().Select("users.*, "+score+" AS car_similarity", args...).
		Order("car_similarity DESC").
		Order("users.follower_count DESC").
		Order("users.created_at DESC").
		Order("users.id ASC"), limit, offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// similarityExpr builds the car similarity score. Matching is case-insensitive.
func similarityExpr(carMake, carModel string) (string, []interface{}) {
	carMake = strings.ToLower(strings.TrimSpace(carMake))
	carModel = strings.ToLower(strings.TrimSpace(carModel))

	switch {
	case carMake != "" && carModel != "":
		return "CASE WHEN LOWER(users.car_make) = ? AND LOWER(users.car_model) = ? THEN 3 " +
			"WHEN LOWER(users.car_make) = ? THEN 2 ELSE 1 END", []interface{}{carMake, carModel, carMake}
	case carMake != "":
		return "CASE WHEN LOWER(users.car_make) = ? THEN 2 ELSE 1 END", []interface{}{carMake}
	default:
		return "1", nil
	}
}

// FollowingIDs returns every user id userID follows.
func (r *GormFollowRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ?", userID).
		Order("following_id").
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FollowerIDs returns every user id following userID.
func (r *GormFollowRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("following_id = ?", userID).
		Order("follower_id").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormFollowRepository) ensureUser(ctx context.Context, userID string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ FollowRepository = (*GormFollowRepository)(nil)
