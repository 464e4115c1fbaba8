package driven

import (
	"context"
	"errors"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserStore defines the driven port for user lookup. User records are
// created by the (out-of-scope) account subsystem; the engine only reads
// them to authorize calls and stamp commit authorship.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}
