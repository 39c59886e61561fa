// Package models holds the transfer objects the client exchanges with the
// hosted services. None of them is an owned data layer; the document store
// and the recognizer are the systems of record.
package models

import "time"

// Photo is an ephemeral reference to a captured or picked image. It lives
// only for the duration of capture -> preview -> submit and is dropped,
// not persisted, when the user backs out of the preview.
type Photo struct {
	URI    string
	Width  int
	Height int
}

// RecognitionResult is produced by the recognizer and immutable once
// received. A re-validation returns a fresh result that replaces the
// displayed one; the old value is never patched.
type RecognitionResult struct {
	Character   string  `json:"character"`
	Confidence  float64 `json:"confidence"`
	ImageBase64 string  `json:"image_base64"`
}

// Character is a catalog entry from the recognizer's characters endpoint.
type Character struct {
	Name        string `json:"name"`
	ImageBase64 string `json:"image_base64"`
}

// Post is a community feed entry owned by the document store.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Username  string    `json:"-"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     []string  `json:"likes"`
}

// LikedBy reports whether uid is in the post's like set.
func (p Post) LikedBy(uid string) bool {
	for _, id := range p.Likes {
		if id == uid {
			return true
		}
	}
	return false
}

// Profile is the per-user record in the document store, created at signup.
type Profile struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Unlock associates a user with a successfully validated recognition.
type Unlock struct {
	ID        string    `json:"id"`
	UserID    string    `json:"uid"`
	Character string    `json:"character"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserSession mirrors the identity backend's current-user object. Its
// lifecycle is tied to the auth-state subscription: created on sign-in,
// cleared on sign-out.
type UserSession struct {
	UID   string
	Email string
}
