package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ImageHost uploads a local image and returns its public URL. Two
// implementations exist: the hosted multipart API and an S3 bucket.
type ImageHost interface {
	Upload(ctx context.Context, path string) (string, error)
}

// HTTPImageHost uploads via a multipart POST to a hosted image API that
// answers {"data":{"link":...}}, authenticated with a client id header.
type HTTPImageHost struct {
	uploadURL string
	clientID  string
	http      *http.Client
}

func NewHTTPImageHost(uploadURL, clientID string, timeout time.Duration) *HTTPImageHost {
	return &HTTPImageHost{
		uploadURL: uploadURL,
		clientID:  clientID,
		http:      &http.Client{Timeout: timeout},
	}
}

func (h *HTTPImageHost) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.uploadURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Client-ID "+h.clientID)

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("image host: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", mapStatus(resp.StatusCode)
	}

	var result struct {
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Data.Link == "" {
		return "", fmt.Errorf("image host returned no link")
	}
	return result.Data.Link, nil
}
