package services

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/nicolasssh/cosplaiii/internal/client/api"
	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/common"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

var (
	ErrUsernameRequired = errors.New("a username is required")
	ErrEmailRequired    = errors.New("an email address is required")
	ErrPasswordRequired = errors.New("a password is required")
	ErrPasswordMismatch = errors.New("the passwords do not match")
)

// AccountIdentityAPI is the slice of the identity client accounts use.
type AccountIdentityAPI interface {
	SignUp(ctx context.Context, email string, password []byte) (*api.AuthResult, error)
	SignIn(ctx context.Context, email string, password []byte) (*api.AuthResult, error)
	UpdateEmail(ctx context.Context, idToken, email string) (*api.AuthResult, error)
	UpdatePassword(ctx context.Context, idToken string, password []byte) (*api.AuthResult, error)
	Delete(ctx context.Context, idToken string) error
}

// AccountStore is the slice of the document store accounts use.
type AccountStore interface {
	PutProfile(ctx context.Context, uid string, profile models.Profile) error
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	UpdateUsername(ctx context.Context, uid, username string) error
	DeleteProfile(ctx context.Context, uid string) error
	ListPostsByAuthor(ctx context.Context, uid string) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListUnlocks(ctx context.Context, uid string) ([]models.Unlock, error)
	DeleteUnlock(ctx context.Context, id string) error
}

// SessionHandle is what the account service needs from the session
// manager: adopting token pairs, tearing the session down, and reading
// the current identity/token.
type SessionHandle interface {
	Current() (models.UserSession, bool)
	Adopt(ctx context.Context, auth *api.AuthResult) error
	SignOut(ctx context.Context)
	Token(ctx context.Context) (string, error)
}

// Account manages sign-up/sign-in, profile updates and account removal.
// Validation failures are caught before any network call.
type Account struct {
	identity AccountIdentityAPI
	store    AccountStore
	session  SessionHandle
	log      logging.Logger
}

func NewAccount(identity AccountIdentityAPI, store AccountStore, session SessionHandle, log logging.Logger) *Account {
	return &Account{identity: identity, store: store, session: session, log: log}
}

// SignUp creates the identity account, adopts the session, and persists a
// profile record keyed by the new user's id.
func (a *Account) SignUp(ctx context.Context, username, email string, password, confirm []byte) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if email == "" {
		return ErrEmailRequired
	}
	if len(password) == 0 {
		return ErrPasswordRequired
	}
	if !bytes.Equal(password, confirm) {
		return ErrPasswordMismatch
	}

	auth, err := a.identity.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.session.Adopt(ctx, auth); err != nil {
		return err
	}

	profile := models.Profile{
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	return a.store.PutProfile(ctx, auth.UID, profile)
}

func (a *Account) SignIn(ctx context.Context, email string, password []byte) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(password) == 0 {
		return ErrPasswordRequired
	}

	auth, err := a.identity.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return a.session.Adopt(ctx, auth)
}

func (a *Account) SignOut(ctx context.Context) {
	a.session.SignOut(ctx)
}

// Profile returns the signed-in user's profile record.
func (a *Account) Profile(ctx context.Context) (*models.Profile, error) {
	user, ok := a.session.Current()
	if !ok {
		return nil, common.ErrSignInRequired
	}
	return a.store.GetProfile(ctx, user.UID)
}

// UpdateEmail changes the account email; the rotated token pair is
// adopted so subsequent calls stay authenticated.
func (a *Account) UpdateEmail(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	user, ok := a.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}

	token, err := a.session.Token(ctx)
	if err != nil {
		return err
	}
	auth, err := a.identity.UpdateEmail(ctx, token, email)
	if err != nil {
		return err
	}
	if auth.UID == "" {
		auth.UID = user.UID
	}
	if auth.Email == "" {
		auth.Email = email
	}
	return a.session.Adopt(ctx, auth)
}

// UpdatePassword changes the account password.
func (a *Account) UpdatePassword(ctx context.Context, password []byte) error {
	if len(password) == 0 {
		return ErrPasswordRequired
	}
	user, ok := a.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}

	token, err := a.session.Token(ctx)
	if err != nil {
		return err
	}
	auth, err := a.identity.UpdatePassword(ctx, token, password)
	if err != nil {
		return err
	}
	if auth.UID == "" {
		auth.UID = user.UID
	}
	if auth.Email == "" {
		auth.Email = user.Email
	}
	return a.session.Adopt(ctx, auth)
}

// UpdateUsername changes the display name in the profile record.
func (a *Account) UpdateUsername(ctx context.Context, username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	user, ok := a.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}
	return a.store.UpdateUsername(ctx, user.UID, username)
}

// DeleteAccount re-authenticates, then removes the user's unlocks, posts
// and profile as a sequence of independent deletes (no cross-collection
// transaction exists), and finally the identity account itself. Per-item
// delete failures are logged and skipped so one orphan cannot block the
// account removal.
func (a *Account) DeleteAccount(ctx context.Context, password []byte) error {
	user, ok := a.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}

	// The identity backend requires a recent sign-in for deletion.
	auth, err := a.identity.SignIn(ctx, user.Email, password)
	if err != nil {
		return err
	}
	if err := a.session.Adopt(ctx, auth); err != nil {
		return err
	}

	if unlocks, err := a.store.ListUnlocks(ctx, user.UID); err != nil {
		a.log.Warn(ctx, "failed to list unlocks for removal", "error", err)
	} else {
		for _, u := range unlocks {
			if err := a.store.DeleteUnlock(ctx, u.ID); err != nil {
				a.log.Warn(ctx, "failed to delete unlock", "id", u.ID, "error", err)
			}
		}
	}

	if posts, err := a.store.ListPostsByAuthor(ctx, user.UID); err != nil {
		a.log.Warn(ctx, "failed to list posts for removal", "error", err)
	} else {
		for _, p := range posts {
			if err := a.store.DeletePost(ctx, p.ID); err != nil {
				a.log.Warn(ctx, "failed to delete post", "id", p.ID, "error", err)
			}
		}
	}

	if err := a.store.DeleteProfile(ctx, user.UID); err != nil {
		a.log.Warn(ctx, "failed to delete profile", "error", err)
	}

	token, err := a.session.Token(ctx)
	if err != nil {
		return err
	}
	if err := a.identity.Delete(ctx, token); err != nil {
		return err
	}

	a.session.SignOut(ctx)
	return nil
}
