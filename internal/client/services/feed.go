// Package services contains the application services behind the screens:
// the community feed, the cosplaydex board, and account management. Each
// service returns typed errors; presentation decides how to surface them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nicolasssh/cosplaiii/internal/client/api"
	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/common"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

// ErrEmptyPost: a post needs at least text or an image; checked before any
// network call.
var ErrEmptyPost = errors.New("a post needs text or an image")

// placeholderUsername substitutes for authors whose profile record is
// missing or malformed; the list never fails over one bad record.
const placeholderUsername = "unknown"

const usernameCacheTTL = 5 * time.Minute

// SessionInfo answers who, if anyone, is signed in.
type SessionInfo interface {
	Current() (models.UserSession, bool)
}

// FeedStore is the slice of the document store the feed uses.
type FeedStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post models.Post) (string, error)
	DeletePost(ctx context.Context, id string) error
	AddLike(ctx context.Context, postID, uid string) error
	RemoveLike(ctx context.Context, postID, uid string) error
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
}

// Feed fetches, displays and mutates the reverse-chronological post list.
// It holds a read-through username cache per screen visit; post state
// itself always reflects the server after a round trip, never an
// optimistic local update.
type Feed struct {
	store   FeedStore
	images  api.ImageHost
	session SessionInfo
	names   *cache.Cache
	log     logging.Logger
}

func NewFeed(store FeedStore, images api.ImageHost, session SessionInfo, log logging.Logger) *Feed {
	return &Feed{
		store:   store,
		images:  images,
		session: session,
		names:   cache.New(usernameCacheTTL, 2*usernameCacheTTL),
		log:     log,
	}
}

// FetchPosts returns all posts newest first, with author display names
// resolved through a secondary lookup keyed by author id.
func (f *Feed) FetchPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := f.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		posts[i].Username = f.usernameFor(ctx, posts[i].AuthorID)
		if posts[i].Likes == nil {
			posts[i].Likes = []string{}
		}
	}
	return posts, nil
}

func (f *Feed) usernameFor(ctx context.Context, uid string) string {
	if uid == "" {
		return placeholderUsername
	}
	if name, ok := f.names.Get(uid); ok {
		return name.(string)
	}

	profile, err := f.store.GetProfile(ctx, uid)
	if err != nil || profile.Username == "" {
		if err != nil {
			f.log.Warn(ctx, "failed to resolve author", "uid", uid, "error", err)
		}
		return placeholderUsername
	}

	f.names.Set(uid, profile.Username, cache.DefaultExpiration)
	return profile.Username
}

// AddPost publishes a post with text and/or an image. An attached image is
// uploaded to the image host first and its public URL stored with the
// post. Requires an active session.
func (f *Feed) AddPost(ctx context.Context, text, imagePath string) error {
	text = strings.TrimSpace(text)
	if text == "" && imagePath == "" {
		return ErrEmptyPost
	}

	user, ok := f.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}

	var imageURL string
	if imagePath != "" {
		url, err := f.images.Upload(ctx, imagePath)
		if err != nil {
			return fmt.Errorf("image upload: %w", err)
		}
		imageURL = url
	}

	post := models.Post{
		AuthorID:  user.UID,
		Content:   text,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
		Likes:     []string{},
	}
	if _, err := f.store.CreatePost(ctx, post); err != nil {
		return err
	}
	return nil
}

// ToggleLike adds or removes the current user's id from the post's like
// set depending on current membership, then re-fetches the list so the UI
// only ever shows server-confirmed state.
func (f *Feed) ToggleLike(ctx context.Context, postID string) ([]models.Post, error) {
	user, ok := f.session.Current()
	if !ok {
		return nil, common.ErrSignInRequired
	}

	post, err := f.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.LikedBy(user.UID) {
		err = f.store.RemoveLike(ctx, postID, user.UID)
	} else {
		err = f.store.AddLike(ctx, postID, user.UID)
	}
	if err != nil {
		return nil, err
	}

	return f.FetchPosts(ctx)
}

// DeletePost removes one of the current user's own posts. Deleting someone
// else's post is refused client-side. The confirmation prompt lives in the
// presentation layer.
func (f *Feed) DeletePost(ctx context.Context, postID string) error {
	user, ok := f.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}

	post, err := f.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != user.UID {
		return fmt.Errorf("you can only delete your own posts: %w", common.ErrForbidden)
	}

	return f.store.DeletePost(ctx, postID)
}

// FormatPostAge renders a post timestamp the way the feed shows it:
// relative up to a week, then the plain date.
func FormatPostAge(createdAt, now time.Time) string {
	d := now.Sub(createdAt)
	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	default:
		return "on " + createdAt.Format("02/01/2006")
	}
}

func plural(n int, unit string) string {
	if n < 0 {
		n = 0
	}
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
