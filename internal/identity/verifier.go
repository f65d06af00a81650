// Package identity defines the contract with the external credential
// service. The verifier owns password storage and email confirmation;
// this application only ever sees the issued user id and confirmation
// state.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyRegistered is returned by SignUp when the email is taken
	ErrAlreadyRegistered = errors.New("identity: email already registered")
	// ErrInvalidCredentials is returned by SignInWithPassword on a bad pair
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Identity is the verifier's view of a user
type Identity struct {
	UserID           string
	Email            string
	EmailConfirmedAt *time.Time
	Name             string
	AvatarURL        string
}

// Verifier validates email/password pairs and issues durable user ids
type Verifier interface {
	// SignUp provisions a new identity. name may be empty.
	SignUp(ctx context.Context, email, password, name string) (*Identity, error)

	// SignInWithPassword verifies a credential pair
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)

	// DeleteUser removes an identity. Used only as the compensating
	// action of the sign-up saga; best-effort.
	DeleteUser(ctx context.Context, userID string) error
}
