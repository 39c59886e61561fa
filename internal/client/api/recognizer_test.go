package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
)

func tempPhoto(t *testing.T) models.Photo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o600))
	return models.Photo{URI: path, Width: 100, Height: 100}
}

func TestRecognizeSendsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recognize", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "shot.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"character":"Rem","confidence":0.874512,"image_base64":"abc"}`))
	}))
	defer srv.Close()

	c := NewRecognizerClient(srv.URL, 5*time.Second)
	result, err := c.Recognize(context.Background(), tempPhoto(t))
	require.NoError(t, err)

	assert.Equal(t, "Rem", result.Character)
	assert.InDelta(t, 0.874512, result.Confidence, 1e-9)
	assert.Equal(t, "abc", result.ImageBase64)
}

func TestRecognizeMapsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRecognizerClient(srv.URL, 5*time.Second)
	_, err := c.Recognize(context.Background(), tempPhoto(t))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCharacters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recognize/characters", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Rem","image_base64":"a"},{"name":"Ram","image_base64":"b"}]`))
	}))
	defer srv.Close()

	c := NewRecognizerClient(srv.URL, 5*time.Second)
	characters, err := c.Characters(context.Background())
	require.NoError(t, err)
	require.Len(t, characters, 2)
	assert.Equal(t, "Rem", characters[0].Name)
}

func TestValidateQueryAndAlternative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recognize/validate", r.URL.Path)
		assert.Equal(t, "Rem", r.URL.Query().Get("name"))
		assert.Equal(t, "false", r.URL.Query().Get("is_true"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"character":"Ram","confidence":0.42,"image_base64":""}`))
	}))
	defer srv.Close()

	c := NewRecognizerClient(srv.URL, 5*time.Second)
	alt, err := c.Validate(context.Background(), "Rem", false, tempPhoto(t))
	require.NoError(t, err)
	require.NotNil(t, alt)
	assert.Equal(t, "Ram", alt.Character)
}

func TestValidateNoAlternativeShapes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"no content", http.StatusNoContent, ""},
		{"empty body", http.StatusOK, ""},
		{"json null", http.StatusOK, "null"},
		{"blank character", http.StatusOK, `{"character":"","confidence":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.payload != "" {
					w.Write([]byte(tt.payload))
				}
			}))
			defer srv.Close()

			c := NewRecognizerClient(srv.URL, 5*time.Second)
			alt, err := c.Validate(context.Background(), "Rem", true, tempPhoto(t))
			require.NoError(t, err)
			assert.Nil(t, alt)
		})
	}
}

func TestMapStatus(t *testing.T) {
	assert.ErrorIs(t, mapStatus(http.StatusUnauthorized), ErrUnauthorized)
	assert.ErrorIs(t, mapStatus(http.StatusForbidden), ErrUnauthorized)
	assert.ErrorIs(t, mapStatus(http.StatusNotFound), ErrNotFound)
	assert.ErrorIs(t, mapStatus(http.StatusBadGateway), ErrUnavailable)
	assert.ErrorIs(t, mapStatus(http.StatusUnprocessableEntity), ErrBadRequest)
}
