package service

import (
	"context"
	"strings"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

const maxDisplayNameLen = 100

type profileService struct {
	repo  repository.UserRepository
	cache cache.Cache
	opts  Options
}

func NewProfileService(repo repository.UserRepository, c cache.Cache, opts Options) ProfileService {
	return &profileService{repo: repo, cache: c, opts: opts}
}

// CreateProfile creates the profile of userID. Counters start at zero.
func (s *profileService) CreateProfile(ctx context.Context, userID string, input domain.ProfileInput) (*domain.User, error) {
	name := strings.TrimSpace(input.DisplayName)
	if userID == "" || name == "" || len(name) > maxDisplayNameLen {
		return nil, ErrInvalidArgument
	}

	model := &domain.UserModel{
		ID:          userID,
		DisplayName: name,
		ImageURL:    input.ImageURL,
		Bio:         input.Bio,
		Interests:   database.StringArray(input.Interests).Normalize(),
		CarMake:     strings.TrimSpace(input.Car.Make),
		CarModel:    strings.TrimSpace(input.Car.Model),
		CarYear:     input.Car.Year,
	}

	opCtx, cancel := s.opts.opContext(ctx)
	err := s.repo.Create(opCtx, model)
	cancel()
	if err != nil {
		err = mapError(err)
		if !isExpected(err) {
			l := pkglog.Ctx(ctx)
			l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to create profile")
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionCreateProfile, userID, "profile created")
	return model.ToDomain(), nil
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return readThrough(ctx, s.cache, cache.UserKey(userID), s.opts.ProfileTTL, func() (*domain.User, error) {
		opCtx, cancel := s.opts.opContext(ctx)
		defer cancel()

		model, err := s.repo.GetByID(opCtx, userID)
		if err != nil {
			return nil, mapError(err)
		}
		return model.ToDomain(), nil
	})
}

// Ensure interface is satisfied at compile time.
var _ ProfileService = (*profileService)(nil)
