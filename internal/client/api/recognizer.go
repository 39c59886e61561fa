// Package api contains typed HTTP clients for the hosted services the
// cosplaiii client consumes: the recognizer, the identity backend, the
// document store and the image host. Each client maps transport failures
// onto package sentinels; callers never see raw status codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
)

// RecognizerClient talks to the recognition service.
type RecognizerClient struct {
	baseURL string
	http    *http.Client
}

func NewRecognizerClient(baseURL string, timeout time.Duration) *RecognizerClient {
	return &RecognizerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Recognize submits the photo as a multipart body to the recognize
// endpoint and returns the predicted character with its confidence score
// and a reference image.
func (c *RecognizerClient) Recognize(ctx context.Context, photo models.Photo) (*models.RecognitionResult, error) {
	body, contentType, err := photoForm(photo.URI)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var result models.RecognitionResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Characters fetches the full catalog.
func (c *RecognizerClient) Characters(ctx context.Context) ([]models.Character, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/recognize/characters", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var characters []models.Character
	if err := c.do(req, &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

// Validate submits a correctness judgment for a candidate. When the
// judgment is negative the service may answer with an alternative
// candidate; a nil result with nil error means no alternative was offered.
func (c *RecognizerClient) Validate(ctx context.Context, candidate string, isTrue bool, photo models.Photo) (*models.RecognitionResult, error) {
	body, contentType, err := photoForm(photo.URI)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("name", candidate)
	q.Set("is_true", strconv.FormatBool(isTrue))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize/validate?"+q.Encode(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}

	var result models.RecognitionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	if result.Character == "" {
		return nil, nil
	}
	return &result, nil
}

func (c *RecognizerClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recognizer: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapStatus(resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// photoForm builds a multipart body holding the photo under the "file"
// field, the shape the recognizer expects.
func photoForm(uri string) (*bytes.Buffer, string, error) {
	f, err := os.Open(uri)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filepath.Base(uri))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
