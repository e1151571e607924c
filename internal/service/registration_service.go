package service

import (
	"context"
	"strings"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// registrationService implements RegistrationService.
type registrationService struct {
	repo        repository.RegistrationRepository
	invalidator *Invalidator
	notifier    *Notifier
	opts        Options
}

// NewRegistrationService creates a new RegistrationService instance.
func NewRegistrationService(repo repository.RegistrationRepository, invalidator *Invalidator, notifier *Notifier, opts Options) RegistrationService {
	return &registrationService{
		repo:        repo,
		invalidator: invalidator,
		notifier:    notifier,
		opts:        opts,
	}
}

// CreateRegistration registers userID for eventID. A full event waitlists
// the registration instead of rejecting it.
func (s *registrationService) CreateRegistration(ctx context.Context, eventID, userID string, details domain.RegistrationDetails) (*domain.Registration, error) {
	if eventID == "" || userID == "" {
		return nil, ErrInvalidArgument
	}
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	opCtx, cancel := s.opts.opContext(ctx)
	model, err := s.repo.Create(opCtx, eventID, userID, details)
	cancel()
	if err != nil {
		return nil, s.fail(ctx, err, eventID, "", "failed to create registration")
	}

	reg := model.ToDomain()
	s.invalidator.Event(ctx, eventID)
	s.notifier.Publish(ctx, EventRegistrationCreated, reg.ID, RegistrationPayload{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         string(reg.Status),
	})
	audit.LogWithDetail(ctx, audit.ActionRegister, userID, reg.ID, string(reg.Status), "registered for event")

	return reg, nil
}

// UpdateRegistrationStatus moves a registration to newStatus and adjusts the
// event's participant count when the move crosses the registered boundary.
func (s *registrationService) UpdateRegistrationStatus(ctx context.Context, registrationID, newStatus string) (*domain.Registration, error) {
	if registrationID == "" {
		return nil, ErrInvalidArgument
	}
	to, err := domain.ParseStatus(newStatus)
	if err != nil {
		return nil, ErrInvalidStatus
	}

	return s.transition(ctx, registrationID, to)
}

// CancelRegistration marks the registration cancelled. Cancelling twice succeeds.
func (s *registrationService) CancelRegistration(ctx context.Context, registrationID string) error {
	if registrationID == "" {
		return ErrInvalidArgument
	}
	_, err := s.transition(ctx, registrationID, domain.StatusCancelled)
	return err
}

func (s *registrationService) transition(ctx context.Context, registrationID string, to domain.RegistrationStatus) (*domain.Registration, error) {
	opCtx, cancel := s.opts.opContext(ctx)
	result, err := s.repo.Transition(opCtx, registrationID, to)
	cancel()
	if err != nil {
		return nil, s.fail(ctx, err, "", registrationID, "failed to change registration status")
	}

	reg := result.Registration.ToDomain()
	if !result.Changed {
		return reg, nil
	}

	s.invalidator.Event(ctx, reg.EventID)

	eventType, action := EventRegistrationStatusChange, audit.ActionChangeRegistration
	if to == domain.StatusCancelled {
		eventType, action = EventRegistrationCancelled, audit.ActionCancelRegistration
	}
	s.notifier.Publish(ctx, eventType, reg.ID, RegistrationPayload{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		From:           string(result.From),
		Status:         string(reg.Status),
	})
	audit.LogWithDetail(ctx, action, reg.UserID, reg.ID, string(result.From)+"->"+string(to), "registration status changed")

	return reg, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, registrationID string) (*domain.Registration, error) {
	opCtx, cancel := s.opts.opContext(ctx)
	defer cancel()

	model, err := s.repo.GetByID(opCtx, registrationID)
	if err != nil {
		return nil, s.fail(ctx, err, "", registrationID, "failed to get registration")
	}
	return model.ToDomain(), nil
}

// ListRegistrations returns one page of registrations. The page carries the
// limit actually applied after defaults and clamping.
func (s *registrationService) ListRegistrations(ctx context.Context, filter domain.RegistrationFilter) (*domain.RegistrationPage, error) {
	if filter.Status != "" {
		if _, err := domain.ParseStatus(string(filter.Status)); err != nil {
			return nil, ErrInvalidStatus
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultRegistrationLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	opCtx, cancel := s.opts.opContext(ctx)
	defer cancel()

	models, total, err := s.repo.List(opCtx, filter)
	if err != nil {
		return nil, s.fail(ctx, err, filter.EventID, "", "failed to list registrations")
	}

	page := &domain.RegistrationPage{
		Registrations: make([]domain.Registration, 0, len(models)),
		Total:         total,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	for i := range models {
		page.Registrations = append(page.Registrations, *models[i].ToDomain())
	}
	return page, nil
}

func (s *registrationService) fail(ctx context.Context, err error, eventID, registrationID, msg string) error {
	err = mapError(err)
	if !isExpected(err) {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).
			Str(pkglog.FieldEventID, eventID).
			Str(pkglog.FieldRegistrationID, registrationID).
			Msg(msg)
	}
	return err
}

func validateDetails(d domain.RegistrationDetails) error {
	if car := d.CarDetails; car != nil {
		if strings.TrimSpace(car.Make) == "" || strings.TrimSpace(car.Model) == "" {
			return ErrInvalidArgument
		}
		if car.Year < 0 {
			return ErrInvalidArgument
		}
	}
	if c := d.EmergencyContact; c != nil {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" {
			return ErrInvalidArgument
		}
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ RegistrationService = (*registrationService)(nil)
