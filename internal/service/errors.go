package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
)

// Error taxonomy. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrForbidden        = errors.New("forbidden")
	ErrTransient        = errors.New("temporarily unavailable")
	ErrInternal         = errors.New("internal error")
)

var (
	ErrSelfFollow           = fmt.Errorf("%w: self-follow", ErrInvalidOperation)
	ErrInvalidArgument      = fmt.Errorf("%w: invalid argument", ErrInvalidOperation)
	ErrInvalidStatus        = fmt.Errorf("%w: unknown registration status", ErrInvalidOperation)
	ErrInvalidTransition    = fmt.Errorf("%w: registration is cancelled", ErrInvalidOperation)
	ErrAlreadyFollowing     = fmt.Errorf("%w: already following", ErrConflict)
	ErrUserExists           = fmt.Errorf("%w: profile already exists", ErrConflict)
	ErrAlreadyRegistered    = fmt.Errorf("%w: already registered", ErrConflict)
	ErrEventFull            = fmt.Errorf("%w: event full", ErrConflict)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrFollowerNotFound     = fmt.Errorf("%w: follower not found", ErrNotFound)
	ErrFolloweeNotFound     = fmt.Errorf("%w: user to follow not found", ErrNotFound)
	ErrEventNotFound        = fmt.Errorf("%w: event not found", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("%w: registration not found", ErrNotFound)
	ErrNotOrganizer         = fmt.Errorf("%w: not the event organizer", ErrForbidden)
	ErrUploadUnavailable    = fmt.Errorf("%w: uploads are not configured", ErrInternal)
)

var repoErrors = []struct {
	from, to error
}{
	{repository.ErrUserNotFound, ErrUserNotFound},
	{repository.ErrUserExists, ErrUserExists},
	{repository.ErrFollowerNotFound, ErrFollowerNotFound},
	{repository.ErrFolloweeNotFound, ErrFolloweeNotFound},
	{repository.ErrAlreadyFollowing, ErrAlreadyFollowing},
	{repository.ErrEventNotFound, ErrEventNotFound},
	{repository.ErrRegistrationNotFound, ErrRegistrationNotFound},
	{repository.ErrAlreadyRegistered, ErrAlreadyRegistered},
	{repository.ErrEventFull, ErrEventFull},
	{domain.ErrUnknownStatus, ErrInvalidStatus},
	{domain.ErrTerminalStatus, ErrInvalidTransition},
}

// mapError translates repository and domain errors into the taxonomy.
// Anything unrecognized is classified as transient or internal.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range repoErrors {
		if errors.Is(err, m.from) {
			return m.to
		}
	}
	return classify(err)
}

func classify(err error) error {
	if isTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// isTransient reports whether retrying the same call may succeed.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57014", "08000", "08003", "08006":
			return true
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// lock wait timeout, deadlock
		return myErr.Number == 1205 || myErr.Number == 1213
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// isExpected reports whether err is a caller error that needs no error log.
func isExpected(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrForbidden)
}
