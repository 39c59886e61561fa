// Package prefs is the client's on-device key/value store. It holds the
// first-launch flag, cached session tokens and the simulated device
// permission states; nothing in it is authoritative for any backend.
package prefs

import "context"

// Repository is a small key/value contract over the local database.
// Get returns ErrNoValue when the key has never been set.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Well-known keys.
const (
	KeyHasLaunched = "has_launched"

	KeySessionUID     = "session_uid"
	KeySessionEmail   = "session_email"
	KeySessionToken   = "session_id_token"
	KeySessionRefresh = "session_refresh_token"

	KeyPermCamera        = "perm_camera"
	KeyPermPhotoLibrary  = "perm_photo_library"
	KeyPermNotifications = "perm_notifications"
	KeyPermLocation      = "perm_location"
)
