package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
)

func staticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

func TestListPostsOrderingAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/posts", r.URL.Path)
		assert.Equal(t, "createdAt", r.URL.Query().Get("orderBy"))
		assert.Equal(t, "desc", r.URL.Query().Get("direction"))
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"p1","authorId":"u1","content":"hi","likes":["u2"]}]`))
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, staticToken("t1"), 5*time.Second)
	posts, err := c.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, []string{"u2"}, posts[0].Likes)
}

func TestAnonymousRequestsOmitAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, nil, 5*time.Second)
	_, err := c.ListPosts(context.Background())
	require.NoError(t, err)
}

func TestLikePatchShapes(t *testing.T) {
	var patches []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/documents/posts/p1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		patches = append(patches, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, staticToken("t1"), 5*time.Second)
	require.NoError(t, c.AddLike(context.Background(), "p1", "u1"))
	require.NoError(t, c.RemoveLike(context.Background(), "p1", "u1"))

	require.Len(t, patches, 2)
	assert.Equal(t,
		map[string]any{"arrayUnion": map[string]any{"likes": "u1"}},
		patches[0])
	assert.Equal(t,
		map[string]any{"arrayRemove": map[string]any{"likes": "u1"}},
		patches[1])
}

func TestCreatePostReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p42"}`))
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, staticToken("t1"), 5*time.Second)
	id, err := c.CreatePost(context.Background(), models.Post{
		AuthorID: "u1",
		Content:  "hello",
		Likes:    []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, "p42", id)
}

func TestGetProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, nil, 5*time.Second)
	_, err := c.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListUnlocksFiltersByUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/unlocks", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("uid"))
		w.Write([]byte(`[{"id":"n1","uid":"u1","character":"Rem"}]`))
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, staticToken("t1"), 5*time.Second)
	unlocks, err := c.ListUnlocks(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "Rem", unlocks[0].Character)
}

func TestTokenSourceFailureAbortsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewDocStoreClient(srv.URL, func(context.Context) (string, error) {
		return "", ErrUnauthorized
	}, 5*time.Second)

	_, err := c.ListPosts(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called)
}
