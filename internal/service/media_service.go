package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/storage"
)

var coverExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type mediaService struct {
	events       repository.EventRepository
	storage      storage.Storage
	uploadExpiry time.Duration
	opts         Options
}

func NewMediaService(events repository.EventRepository, store storage.Storage, uploadExpiry time.Duration, opts Options) MediaService {
	if uploadExpiry <= 0 {
		uploadExpiry = 15 * time.Minute
	}
	return &mediaService{events: events, storage: store, uploadExpiry: uploadExpiry, opts: opts}
}

// PresignEventCover hands out a URL the organizer can PUT a cover image to.
func (s *mediaService) PresignEventCover(ctx context.Context, eventID, contentType string) (*domain.UploadTarget, error) {
	ext, ok := coverExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidArgument, contentType)
	}

	opCtx, cancel := s.opts.opContext(ctx)
	defer cancel()

	event, err := s.events.GetByID(opCtx, eventID)
	if err != nil {
		return nil, mapError(err)
	}

	key := fmt.Sprintf("events/%s/cover/%s.%s", event.ID, ulid.Make().String(), ext)
	url, err := s.storage.GetUploadURL(opCtx, key, contentType, s.uploadExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			return nil, ErrUploadUnavailable
		}
		err = classify(err)
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldEventID, eventID).Msg("failed to presign cover upload")
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionPresignCover, event.OrganizerID, event.ID, "cover upload presigned")

	return &domain.UploadTarget{
		UploadURL: url,
		ObjectKey: key,
		ExpiresAt: time.Now().UTC().Add(s.uploadExpiry),
	}, nil
}

// Ensure interface is satisfied at compile time.
var _ MediaService = (*mediaService)(nil)
