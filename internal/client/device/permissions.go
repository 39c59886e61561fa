// Package device models the pieces of the host device the screens need:
// permission state and photo files. On mobile the OS brokers permissions;
// here the granted/denied state is mirrored in the prefs store so the
// settings screen and the capture gate observe the same source.
package device

import (
	"context"
	"errors"

	"github.com/nicolasssh/cosplaiii/internal/client/repositories/prefs"
)

type Permission string

const (
	PermissionCamera        Permission = "camera"
	PermissionPhotoLibrary  Permission = "photo_library"
	PermissionNotifications Permission = "notifications"
	PermissionLocation      Permission = "location"
)

// Gate answers whether a permission is granted and lets the app request
// it. Request blocks until the user responds; a denial leaves the state
// untouched so the caller can surface a blocking alert.
type Gate interface {
	Granted(ctx context.Context, p Permission) bool
	Request(ctx context.Context, p Permission) (bool, error)
}

// Prompter asks the user a yes/no question. The CLI layer provides one;
// tests stub it.
type Prompter func(question string) (bool, error)

// PrefsGate persists permission grants in the prefs store.
type PrefsGate struct {
	store  prefs.Repository
	prompt Prompter
}

func NewPrefsGate(store prefs.Repository, prompt Prompter) *PrefsGate {
	return &PrefsGate{store: store, prompt: prompt}
}

func permKey(p Permission) string {
	switch p {
	case PermissionCamera:
		return prefs.KeyPermCamera
	case PermissionPhotoLibrary:
		return prefs.KeyPermPhotoLibrary
	case PermissionNotifications:
		return prefs.KeyPermNotifications
	case PermissionLocation:
		return prefs.KeyPermLocation
	}
	return "perm_" + string(p)
}

func (g *PrefsGate) Granted(ctx context.Context, p Permission) bool {
	v, err := g.store.Get(ctx, permKey(p))
	if err != nil {
		return false
	}
	return v == "granted"
}

func (g *PrefsGate) Request(ctx context.Context, p Permission) (bool, error) {
	if g.Granted(ctx, p) {
		return true, nil
	}

	ok, err := g.prompt("Allow access to " + string(p) + "?")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := g.store.Set(ctx, permKey(p), "granted"); err != nil {
		return false, err
	}
	return true, nil
}

// ErrCannotRevoke communicates that a granted permission can only be
// withdrawn from the system settings, not from inside the app.
var ErrCannotRevoke = errors.New("permissions can only be revoked from the system settings")
