package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
)

// ErrNotFound is wrapped by every repository implementation when a record does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	Session() SessionRepository
	Close() error
}

// SessionRepository stores server side sessions
type SessionRepository interface {
	Put(ctx context.Context, session *auth.Session) error
	Get(ctx context.Context, id auth.SessionID) (*auth.Session, error)
	Delete(ctx context.Context, id auth.SessionID) error
	// DeleteExpired removes sessions whose absolute lifetime ended before now and
	// returns how many were removed
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
