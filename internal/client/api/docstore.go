package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
)

// TokenSource supplies a fresh ID token for authenticated document store
// calls. Anonymous reads pass an empty token.
type TokenSource func(ctx context.Context) (string, error)

// DocStoreClient talks to the hosted document database. Collections in
// use: posts, users, unlocks. Queries are simple equality/ordering
// filters; there are no transactions across collections.
type DocStoreClient struct {
	baseURL string
	token   TokenSource
	http    *http.Client
}

func NewDocStoreClient(baseURL string, token TokenSource, timeout time.Duration) *DocStoreClient {
	if token == nil {
		token = func(context.Context) (string, error) { return "", nil }
	}
	return &DocStoreClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// patchRequest is the wire shape of a partial document update. Set
// overwrites named fields; ArrayUnion/ArrayRemove are element-level
// mutations on array fields (used for the like set).
type patchRequest struct {
	Set         map[string]any    `json:"set,omitempty"`
	ArrayUnion  map[string]string `json:"arrayUnion,omitempty"`
	ArrayRemove map[string]string `json:"arrayRemove,omitempty"`
}

// ListPosts returns all posts ordered by creation time descending.
func (c *DocStoreClient) ListPosts(ctx context.Context) ([]models.Post, error) {
	q := url.Values{}
	q.Set("orderBy", "createdAt")
	q.Set("direction", "desc")

	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/documents/posts?"+q.Encode(), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostsByAuthor returns the author's posts, used during account removal.
func (c *DocStoreClient) ListPostsByAuthor(ctx context.Context, uid string) ([]models.Post, error) {
	q := url.Values{}
	q.Set("authorId", uid)

	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/documents/posts?"+q.Encode(), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *DocStoreClient) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, "/documents/posts/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *DocStoreClient) CreatePost(ctx context.Context, post models.Post) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/documents/posts", post, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *DocStoreClient) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/documents/posts/"+url.PathEscape(id), nil, nil)
}

// AddLike adds uid to the post's like set (array-union, idempotent server side).
func (c *DocStoreClient) AddLike(ctx context.Context, postID, uid string) error {
	body := patchRequest{ArrayUnion: map[string]string{"likes": uid}}
	return c.do(ctx, http.MethodPatch, "/documents/posts/"+url.PathEscape(postID), body, nil)
}

// RemoveLike removes uid from the post's like set (array-remove).
func (c *DocStoreClient) RemoveLike(ctx context.Context, postID, uid string) error {
	body := patchRequest{ArrayRemove: map[string]string{"likes": uid}}
	return c.do(ctx, http.MethodPatch, "/documents/posts/"+url.PathEscape(postID), body, nil)
}

func (c *DocStoreClient) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, "/documents/users/"+url.PathEscape(uid), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *DocStoreClient) PutProfile(ctx context.Context, uid string, profile models.Profile) error {
	return c.do(ctx, http.MethodPut, "/documents/users/"+url.PathEscape(uid), profile, nil)
}

func (c *DocStoreClient) UpdateUsername(ctx context.Context, uid, username string) error {
	body := patchRequest{Set: map[string]any{"username": username}}
	return c.do(ctx, http.MethodPatch, "/documents/users/"+url.PathEscape(uid), body, nil)
}

func (c *DocStoreClient) DeleteProfile(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/documents/users/"+url.PathEscape(uid), nil, nil)
}

// ListUnlocks returns the user's unlock records, one per validated
// recognition (a character may appear several times).
func (c *DocStoreClient) ListUnlocks(ctx context.Context, uid string) ([]models.Unlock, error) {
	q := url.Values{}
	q.Set("uid", uid)

	var unlocks []models.Unlock
	if err := c.do(ctx, http.MethodGet, "/documents/unlocks?"+q.Encode(), nil, &unlocks); err != nil {
		return nil, err
	}
	return unlocks, nil
}

func (c *DocStoreClient) CreateUnlock(ctx context.Context, unlock models.Unlock) error {
	return c.do(ctx, http.MethodPost, "/documents/unlocks", unlock, nil)
}

func (c *DocStoreClient) DeleteUnlock(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/documents/unlocks/"+url.PathEscape(id), nil, nil)
}

func (c *DocStoreClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("document store: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
