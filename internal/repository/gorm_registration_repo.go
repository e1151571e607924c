package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
)

// GormRegistrationRepository implements RegistrationRepository using GORM.
type GormRegistrationRepository struct {
	db *gorm.DB
}

// NewGormRegistrationRepository creates a new GORM-backed registration repository.
func NewGormRegistrationRepository(db *gorm.DB) *GormRegistrationRepository {
	return &GormRegistrationRepository{db: db}
}

// Create registers userID for eventID. The event row is locked for the whole
// transaction, so the registered count read here cannot change before the
// insert commits.
func (r *GormRegistrationRepository) Create(ctx context.Context, eventID, userID string, details domain.RegistrationDetails) (*domain.RegistrationModel, error) {
	car, err := toJSON(details.CarDetails)
	if err != nil {
		return nil, err
	}
	contact, err := toJSON(details.EmergencyContact)
	if err != nil {
		return nil, err
	}

	var model *domain.RegistrationModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&domain.RegistrationModel{}).
			Where("event_id = ? AND user_id = ? AND status <> ?", eventID, userID, string(domain.StatusCancelled)).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrAlreadyRegistered
		}

		registered, err := countRegistered(tx, eventID)
		if err != nil {
			return err
		}
		status := domain.InitialStatus(event.RequiresApproval, event.MaxParticipants, int(registered))

		model = &domain.RegistrationModel{
			ID:                  ulid.Make().String(),
			EventID:             eventID,
			UserID:              userID,
			Status:              string(status),
			CarDetails:          car,
			SpecialRequirements: details.SpecialRequirements,
			EmergencyContact:    contact,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		if status == domain.StatusRegistered {
			return refreshEventParticipants(tx, []string{eventID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

func (r *GormRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationModel, error) {
	var reg domain.RegistrationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&reg).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// Transition moves a registration to status to. Locks are taken event first,
// then registration, the same order Create uses.
func (r *GormRegistrationRepository) Transition(ctx context.Context, id string, to domain.RegistrationStatus) (*Transition, error) {
	var result *Transition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg domain.RegistrationModel
		if err := tx.Select("event_id").Where("id = ?", id).Take(&reg).Error; err != nil {
			if isNotFound(err) {
				return ErrRegistrationNotFound
			}
			return err
		}

		event, err := lockEvent(tx, reg.EventID)
		if err != nil {
			return err
		}

		if err := forUpdate(tx).Where("id = ?", id).Take(&reg).Error; err != nil {
			if isNotFound(err) {
				return ErrRegistrationNotFound
			}
			return err
		}

		from := domain.RegistrationStatus(reg.Status)
		if err := domain.ValidateTransition(from, to); err != nil {
			return err
		}
		if from == to {
			result = &Transition{Registration: &reg, From: from}
			return nil
		}

		delta := domain.ParticipantDelta(from, to)
		if delta > 0 && event.MaxParticipants != nil {
			registered, err := countRegistered(tx, event.ID)
			if err != nil {
				return err
			}
			if int(registered) >= *event.MaxParticipants {
				return ErrEventFull
			}
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":     string(to),
			"updated_at": now,
		}
		if to == domain.StatusCancelled {
			updates["cancelled_at"] = now
			reg.CancelledAt = &now
		}
		if err := tx.Model(&domain.RegistrationModel{}).
			Where("id = ?", id).
			Updates(updates).Error; err != nil {
			return err
		}
		reg.Status = string(to)
		reg.UpdatedAt = now

		if delta != 0 {
			if err := refreshEventParticipants(tx, []string{event.ID}); err != nil {
				return err
			}
		}

		result = &Transition{Registration: &reg, From: from, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns registrations matching filter, oldest first.
func (r *GormRegistrationRepository) List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.RegistrationModel, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.RegistrationModel{})
		if filter.EventID != "" {
			q = q.Where("event_id = ?", filter.EventID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	regs := []domain.RegistrationModel{}
	if total == 0 {
		return regs, 0, nil
	}
	if err := applyPage(base().Order("created_at ASC").Order("id ASC"), filter.Limit, filter.Offset).
		Find(&regs).Error; err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func lockEvent(tx *gorm.DB, eventID string) (*domain.EventModel, error) {
	var event domain.EventModel
	if err := forUpdate(tx).
		Select("id", "max_participants", "requires_approval").
		Where("id = ?", eventID).
		Take(&event).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func countRegistered(tx *gorm.DB, eventID string) (int64, error) {
	var n int64
	err := tx.Model(&domain.RegistrationModel{}).
		Where("event_id = ? AND status = ?", eventID, string(domain.StatusRegistered)).
		Count(&n).Error
	return n, err
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	switch t := v.(type) {
	case *domain.CarDetails:
		if t == nil {
			return nil, nil
		}
	case *domain.EmergencyContact:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// Ensure interface is satisfied at compile time.
var _ RegistrationRepository = (*GormRegistrationRepository)(nil)
