package services

import (
	"errors"
	"fmt"

	"github.com/anonto42/goalsocial/backend/internal/repositories"
)

// Error kinds surfaced to callers. Match with errors.Is.
var (
	ErrSelfFollow            = errors.New("cannot follow yourself")
	ErrAlreadyFollowing      = errors.New("already following this user")
	ErrNotFollowing          = errors.New("not following this user")
	ErrFollowRequestNotFound = errors.New("follow request not found")
	ErrAccessDenied          = errors.New("access denied")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
)

// notFound wraps repositories.ErrNotFound as ErrNotFound for the named
// resource and passes other errors through.
func notFound(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
